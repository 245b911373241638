package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// SeedBalance is a test helper that sets the available balance of a wallet
// without recording a transaction.
func SeedBalance(ctx context.Context, store WalletStore, walletID string, amount decimal.Decimal) error {
	w, err := store.Get(ctx, walletID)
	if err != nil {
		return err
	}
	w.BalanceAvailable = amount
	return store.SaveBalances(ctx, w)
}
