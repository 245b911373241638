package funding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taskhub/marketplace/internal/banking"
	"github.com/taskhub/marketplace/internal/ledger"
	"github.com/taskhub/marketplace/internal/logging"
	"github.com/taskhub/marketplace/internal/wallet"
)

type declineGateway struct{ StaticGateway }

func (declineGateway) AuthorizeCardIn(context.Context, CardInAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Status: StatusDeclined}, nil
}

type payoutGateway struct {
	StaticGateway
	approve  bool
	payouts  atomic.Int32
	approved atomic.Int32
}

func (g *payoutGateway) AuthorizePayout(context.Context, PayoutAuthorization) (AuthorizationDecision, error) {
	g.payouts.Add(1)
	if !g.approve {
		return AuthorizationDecision{Status: StatusDeclined}, nil
	}
	g.approved.Add(1)
	return AuthorizationDecision{Reference: uuid.NewString(), Status: StatusApproved}, nil
}

type fixture struct {
	svc     *Service
	wallets *wallet.Service
	repo    wallet.Repository
	banks   *banking.Service
	userID  string
	wallet  wallet.Wallet
}

func newFixture(t *testing.T, gateway Gateway) fixture {
	t.Helper()
	ctx := context.Background()
	repo := wallet.NewMemoryRepository()
	wallets := wallet.NewService(repo, nil)
	transactions := ledger.NewService(ledger.NewInMemory(repo), wallets, nil, nil, logging.Discard())
	banks := banking.NewService(banking.NewMemoryRepository())

	userID := uuid.NewString()
	w, err := wallets.Create(ctx, userID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	svc, err := NewService(transactions, wallets, banks, gateway)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC) }
	return fixture{svc: svc, wallets: wallets, repo: repo, banks: banks, userID: userID, wallet: w}
}

func TestServiceCardDeposit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StaticGateway{})

	res, err := f.svc.CardDeposit(ctx, CardDepositInput{
		UserID:     f.userID,
		Amount:     decimal.RequireFromString("100.00"),
		CardNumber: "4111 1111 1111 1111",
		Expiry:     "12/29",
		CVV:        "123",
	})
	if err != nil {
		t.Fatalf("card deposit: %v", err)
	}
	if res.Transaction.Status != ledger.StatusCompleted || res.Transaction.PaymentType != ledger.PaymentCard {
		t.Fatalf("unexpected transaction %+v", res.Transaction)
	}
	if res.Reference == "" {
		t.Fatalf("expected gateway reference")
	}
	w, _ := f.wallets.Get(ctx, f.wallet.ID)
	if !w.AvailableBalance().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100, got %s", w.AvailableBalance())
	}
}

func TestServiceCardDepositRejectsBadCards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StaticGateway{})
	in := CardDepositInput{UserID: f.userID, Amount: decimal.NewFromInt(1)}

	for _, card := range []string{"4111111111111112", "1234", "4111-1111-1111-111x"} {
		in.CardNumber = card
		if _, err := f.svc.CardDeposit(ctx, in); !errors.Is(err, ErrInvalidCard) {
			t.Fatalf("card %q: expected invalid card, got %v", card, err)
		}
	}

	in.CardNumber = "4111111111111111"
	in.Expiry = "12/25"
	if _, err := f.svc.CardDeposit(ctx, in); !errors.Is(err, ErrCardExpired) {
		t.Fatalf("expected expired card, got %v", err)
	}
}

func TestServiceCardDepositDeclined(t *testing.T) {
	f := newFixture(t, declineGateway{})
	_, err := f.svc.CardDeposit(context.Background(), CardDepositInput{
		UserID: f.userID, Amount: decimal.NewFromInt(5), CardNumber: "4111111111111111",
	})
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected declined, got %v", err)
	}
}

func TestServiceBankPayout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, StaticGateway{})
	bank, err := f.banks.CreateBank(ctx, "Bank")
	if err != nil {
		t.Fatalf("create bank: %v", err)
	}
	account, err := f.banks.CreateAccount(ctx, f.userID, banking.AccountInput{AccountHolderName: "Ada", AccountNumber: "42", BankID: bank.ID})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	payout := PayoutInput{UserID: f.userID, BankAccountID: account.ID, Amount: decimal.NewFromInt(60)}
	if _, err := f.svc.BankPayout(ctx, payout); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if err := ledger.SeedBalance(ctx, f.repo, f.wallet.ID, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := f.svc.BankPayout(ctx, payout)
	if err != nil {
		t.Fatalf("payout: %v", err)
	}
	if res.Transaction.Type != ledger.TypeWithdrawal || res.Transaction.PaymentType != ledger.PaymentBankAccount {
		t.Fatalf("unexpected transaction %+v", res.Transaction)
	}
	w, _ := f.wallets.Get(ctx, f.wallet.ID)
	if !w.AvailableBalance().Equal(decimal.NewFromInt(40)) || !w.TotalWithdrawals.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected wallet after payout: %+v", w.Balances)
	}

	other := PayoutInput{UserID: uuid.NewString(), BankAccountID: account.ID, Amount: decimal.NewFromInt(1)}
	if _, err := f.svc.BankPayout(ctx, other); !errors.Is(err, banking.ErrAccountNotFound) {
		t.Fatalf("expected foreign account to be rejected, got %v", err)
	}
}

func newPayoutAccount(t *testing.T, f fixture) banking.BankAccount {
	t.Helper()
	ctx := context.Background()
	bank, err := f.banks.CreateBank(ctx, "Bank")
	if err != nil {
		t.Fatalf("create bank: %v", err)
	}
	account, err := f.banks.CreateAccount(ctx, f.userID, banking.AccountInput{AccountHolderName: "Ada", AccountNumber: "42", BankID: bank.ID})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := ledger.SeedBalance(ctx, f.repo, f.wallet.ID, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return account
}

func TestServiceBankPayoutDeclinedIsReversed(t *testing.T) {
	ctx := context.Background()
	gateway := &payoutGateway{}
	f := newFixture(t, gateway)
	account := newPayoutAccount(t, f)

	_, err := f.svc.BankPayout(ctx, PayoutInput{UserID: f.userID, BankAccountID: account.ID, Amount: decimal.NewFromInt(60)})
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected declined, got %v", err)
	}
	w, _ := f.wallets.Get(ctx, f.wallet.ID)
	if !w.AvailableBalance().Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance restored to 100, got %s", w.AvailableBalance())
	}
	refunds, err := f.svc.transactions.List(ctx, ledger.Filter{Type: ledger.TypeRefund}, f.userID, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(refunds) != 1 || !refunds[0].Amount.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected one reversal of 60, got %+v", refunds)
	}
}

func TestServiceConcurrentPayoutsAuthorizeOnlyFundedWithdrawals(t *testing.T) {
	ctx := context.Background()
	gateway := &payoutGateway{approve: true}
	f := newFixture(t, gateway)
	account := newPayoutAccount(t, f)

	const workers = 2
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.BankPayout(ctx, PayoutInput{UserID: f.userID, BankAccountID: account.ID, Amount: decimal.NewFromInt(100)})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ledger.ErrInsufficientFunds):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 1 || rejected.Load() != 1 {
		t.Fatalf("expected one payout and one rejection, got %d and %d", succeeded.Load(), rejected.Load())
	}
	if gateway.payouts.Load() != 1 {
		t.Fatalf("expected only the funded payout to reach the gateway, got %d", gateway.payouts.Load())
	}
	w, _ := f.wallets.Get(ctx, f.wallet.ID)
	if !w.AvailableBalance().IsZero() {
		t.Fatalf("expected empty wallet, got %s", w.AvailableBalance())
	}
}
