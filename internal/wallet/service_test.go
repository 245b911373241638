package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeStripe struct {
	balance   ConnectBalance
	accountID string
}

func (f *fakeStripe) Balance(_ context.Context, accountID string) (ConnectBalance, error) {
	f.accountID = accountID
	return f.balance, nil
}

func TestServiceCreateAndGet(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()
	userID := uuid.NewString()

	w, err := svc.Create(ctx, userID)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if !w.AvailableBalance().IsZero() || !w.PendingBalance().IsZero() {
		t.Fatalf("new wallet must start empty: %+v", w.Balances)
	}

	fetched, err := svc.Get(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	byUser, err := svc.GetByUser(ctx, userID)
	if err != nil {
		t.Fatalf("get by user: %v", err)
	}
	if fetched.ID != w.ID || byUser.ID != w.ID {
		t.Fatalf("expected wallet %s, got %s / %s", w.ID, fetched.ID, byUser.ID)
	}

	if _, err := svc.Create(ctx, userID); !errors.Is(err, ErrWalletExists) {
		t.Fatalf("expected one wallet per user, got %v", err)
	}
}

func TestStripeHelpers(t *testing.T) {
	w := Wallet{}
	if w.IsStripeConnected() || w.IsStripeAccountActive() {
		t.Fatalf("empty wallet must not be connected")
	}
	w.Stripe.AccountID = "acct_123"
	if !w.IsStripeConnected() || w.IsStripeAccountActive() {
		t.Fatalf("connected but inactive account misreported")
	}
	w.Stripe.Active = true
	if !w.IsStripeAccountActive() {
		t.Fatalf("expected active account")
	}
}

func TestSyncConnectBalance(t *testing.T) {
	stripe := &fakeStripe{balance: ConnectBalance{
		Available:         decimal.RequireFromString("120.50"),
		AvailableCurrency: "usd",
		Pending:           decimal.RequireFromString("10"),
		PendingCurrency:   "usd",
	}}
	svc := NewService(NewMemoryRepository(), stripe)
	ctx := context.Background()

	w, err := svc.Create(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SyncConnectBalance(ctx, w.ID); !errors.Is(err, ErrStripeNotConnected) {
		t.Fatalf("expected not connected, got %v", err)
	}

	if _, err := svc.ConnectStripe(ctx, w.ID, StripeAccount{AccountID: "acct_42", Email: "Pay@Example.com", Active: true}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	synced, err := svc.SyncConnectBalance(ctx, w.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if stripe.accountID != "acct_42" {
		t.Fatalf("expected balance lookup for acct_42, got %s", stripe.accountID)
	}
	if !synced.ConnectBalance().Equal(decimal.RequireFromString("120.5")) {
		t.Fatalf("unexpected connect balance %s", synced.ConnectBalance())
	}
	if synced.Stripe.Email != "pay@example.com" {
		t.Fatalf("expected normalized email, got %s", synced.Stripe.Email)
	}
}

func TestSyncWithoutStripeClient(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	if _, err := svc.SyncConnectBalance(context.Background(), uuid.NewString()); !errors.Is(err, ErrStripeDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil)
	ctx := context.Background()
	var last Wallet
	for i := 0; i < 3; i++ {
		w, err := svc.Create(ctx, uuid.NewString())
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		last = w
	}
	wallets, err := svc.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(wallets) != 2 {
		t.Fatalf("expected page of 2, got %d", len(wallets))
	}
	if !wallets[0].CreatedAt.After(last.CreatedAt) && wallets[0].CreatedAt != last.CreatedAt {
		t.Fatalf("expected newest wallet first")
	}
}

func TestServiceGetByUserProvisionsMissingWallet(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil)
	ctx := context.Background()
	userID := uuid.NewString()

	w, err := svc.GetByUser(ctx, userID)
	if err != nil {
		t.Fatalf("get by user: %v", err)
	}
	if w.UserID != userID || w.ID == "" {
		t.Fatalf("unexpected wallet %+v", w)
	}
	stored, err := repo.GetByUser(ctx, userID)
	if err != nil || stored.ID != w.ID {
		t.Fatalf("expected wallet %s to be stored, got %s (%v)", w.ID, stored.ID, err)
	}
	if _, err := svc.GetByUser(ctx, "not-a-uuid"); err == nil {
		t.Fatalf("expected invalid user id to be rejected")
	}
}
