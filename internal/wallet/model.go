package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the cached balance totals of a single user.
type Wallet struct {
	ID          string
	UserID      string
	Description string
	Stripe      StripeAccount
	Balances
	Connect   ConnectBalance
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StripeAccount describes the Stripe Connect account linked to a wallet.
type StripeAccount struct {
	AccountID   string
	AccountType string
	Country     string
	Email       string
	Description map[string]any
	Active      bool
}

// Balances are the overall and balance report figures. They are only changed
// by the ledger while the wallet is locked.
type Balances struct {
	TotalAmounts       decimal.Decimal
	TotalDeposits      decimal.Decimal
	TotalEarnings      decimal.Decimal
	TotalWithdrawals   decimal.Decimal
	BalanceAvailable   decimal.Decimal
	BalancePending     decimal.Decimal
	OutstandingCharges decimal.Decimal
}

// ConnectBalance mirrors the balance reported by Stripe for the connected account.
type ConnectBalance struct {
	Available         decimal.Decimal
	AvailableCurrency string
	Pending           decimal.Decimal
	PendingCurrency   string
}

// IsStripeConnected reports whether a Stripe account id is linked.
func (w Wallet) IsStripeConnected() bool {
	return w.Stripe.AccountID != ""
}

// IsStripeAccountActive reports whether the linked Stripe account is usable.
func (w Wallet) IsStripeAccountActive() bool {
	return w.IsStripeConnected() && w.Stripe.Active
}

// AvailableBalance returns the spendable balance.
func (w Wallet) AvailableBalance() decimal.Decimal {
	return w.BalanceAvailable
}

// PendingBalance returns funds not yet available.
func (w Wallet) PendingBalance() decimal.Decimal {
	return w.BalancePending
}

// ConnectBalance returns the available Stripe Connect balance.
func (w Wallet) ConnectBalance() decimal.Decimal {
	return w.Connect.Available
}
