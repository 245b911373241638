package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taskhub/marketplace/internal/wallet"
)

func newWallet(t *testing.T, repo wallet.Repository) wallet.Wallet {
	t.Helper()
	w, err := wallet.NewService(repo, nil).Create(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	return w
}

func balance(t *testing.T, repo wallet.Repository, id string) decimal.Decimal {
	t.Helper()
	w, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	return w.BalanceAvailable
}

func TestInMemoryLedger_RecordThenProcess(t *testing.T) {
	ctx := context.Background()
	repo := wallet.NewMemoryRepository()
	l := NewInMemory(repo)
	w := newWallet(t, repo)

	tx, err := l.Record(ctx, Transaction{UserID: w.UserID, WalletID: w.ID, Amount: amount("25.50"), Type: TypeDeposit})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if tx.Status != StatusPending || tx.PaymentType != PaymentBankAccount {
		t.Fatalf("unexpected defaults: %s / %s", tx.Status, tx.PaymentType)
	}
	if !balance(t, repo, w.ID).IsZero() {
		t.Fatalf("recording must not move balances")
	}

	done, err := l.Process(ctx, tx.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if got := balance(t, repo, w.ID); !got.Equal(amount("25.5")) {
		t.Fatalf("expected balance 25.50, got %s", got)
	}

	if _, err := l.Process(ctx, tx.ID); !errors.Is(err, ErrCompletedImmutable) {
		t.Fatalf("expected completed transaction to be immutable, got %v", err)
	}
	if _, err := l.Transition(ctx, tx.ID, StatusCancelled); !errors.Is(err, ErrCompletedImmutable) {
		t.Fatalf("expected completed transaction to be immutable, got %v", err)
	}
}

func TestInMemoryLedger_WithdrawalChecksBalance(t *testing.T) {
	ctx := context.Background()
	repo := wallet.NewMemoryRepository()
	l := NewInMemory(repo)
	w := newWallet(t, repo)

	if _, err := l.Record(ctx, Transaction{WalletID: w.ID, Amount: amount("1"), Type: TypeWithdrawal}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if err := SeedBalance(ctx, repo, w.ID, amount("50")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	first, err := l.Record(ctx, Transaction{WalletID: w.ID, Amount: amount("40"), Type: TypeWithdrawal})
	if err != nil {
		t.Fatalf("record first: %v", err)
	}
	second, err := l.Record(ctx, Transaction{WalletID: w.ID, Amount: amount("40"), Type: TypeWithdrawal})
	if err != nil {
		t.Fatalf("record second: %v", err)
	}

	if _, err := l.Process(ctx, first.ID); err != nil {
		t.Fatalf("process first: %v", err)
	}
	if _, err := l.Process(ctx, second.ID); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected second withdrawal to fail, got %v", err)
	}
	still, err := l.Get(ctx, second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if still.Status != StatusPending {
		t.Fatalf("failed processing must leave status pending, got %s", still.Status)
	}
	if got := balance(t, repo, w.ID); !got.Equal(amount("10")) {
		t.Fatalf("expected balance 10, got %s", got)
	}
}

func TestInMemoryLedger_RejectedCannotComplete(t *testing.T) {
	ctx := context.Background()
	repo := wallet.NewMemoryRepository()
	l := NewInMemory(repo)
	w := newWallet(t, repo)

	tx, err := l.Record(ctx, Transaction{WalletID: w.ID, Amount: amount("5"), Type: TypeDeposit})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := l.Transition(ctx, tx.ID, StatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := l.Process(ctx, tx.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := l.Record(ctx, Transaction{WalletID: w.ID, Amount: amount("5"), Type: TypeDeposit, Status: StatusCompleted}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected completed initial status to be rejected, got %v", err)
	}
}

func TestInMemoryLedger_ConcurrentWithdrawals(t *testing.T) {
	ctx := context.Background()
	repo := wallet.NewMemoryRepository()
	l := NewInMemory(repo)
	w := newWallet(t, repo)
	if err := SeedBalance(ctx, repo, w.ID, amount("100")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const workers = 20
	ids := make([]string, 0, workers)
	for i := 0; i < workers; i++ {
		tx, err := l.Record(ctx, Transaction{WalletID: w.ID, Amount: amount("10"), Type: TypeWithdrawal})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		ids = append(ids, tx.ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := l.Process(ctx, id)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("process %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected exactly 10 withdrawals to succeed, got %d", succeeded)
	}
	if got := balance(t, repo, w.ID); !got.IsZero() {
		t.Fatalf("expected empty wallet, got %s", got)
	}
}

func TestInMemoryLedger_PostIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := wallet.NewMemoryRepository()
	l := NewInMemory(repo)
	payer := newWallet(t, repo)
	payee := newWallet(t, repo)
	if err := SeedBalance(ctx, repo, payer.ID, amount("30")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	transfer := func(value string) []Transaction {
		return []Transaction{
			{UserID: payee.UserID, WalletID: payee.ID, Amount: amount(value), Type: TypeDeposit, ServiceID: "svc-1"},
			{UserID: payer.UserID, WalletID: payer.ID, Amount: amount(value), Type: TypeCharge},
		}
	}

	if _, err := l.Post(ctx, transfer("50")...); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if !balance(t, repo, payee.ID).IsZero() {
		t.Fatalf("failed post must not credit the payee")
	}
	if txs, _ := l.List(ctx, Filter{}); len(txs) != 0 {
		t.Fatalf("failed post must not store transactions, got %d", len(txs))
	}

	posted, err := l.Post(ctx, transfer("30")...)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	for _, tx := range posted {
		if tx.Status != StatusCompleted {
			t.Fatalf("expected posted transactions to be completed")
		}
	}
	if !balance(t, repo, payer.ID).IsZero() || !balance(t, repo, payee.ID).Equal(amount("30")) {
		t.Fatalf("unexpected balances after post")
	}
	got, err := repo.Get(ctx, payee.ID)
	if err != nil {
		t.Fatalf("get payee: %v", err)
	}
	if !got.TotalEarnings.Equal(amount("30")) {
		t.Fatalf("expected earnings 30, got %s", got.TotalEarnings)
	}
}

func TestInMemoryLedger_ListFiltersNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := wallet.NewMemoryRepository()
	mem := NewInMemory(repo).(*inMemoryLedger)
	w := newWallet(t, repo)

	base := mem.now()
	for i := 0; i < 3; i++ {
		tx := Transaction{UserID: w.UserID, WalletID: w.ID, Amount: amount("1"), Type: TypeDeposit, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if _, err := mem.Record(ctx, tx); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := mem.Record(ctx, Transaction{UserID: uuid.NewString(), Amount: amount("1"), Type: TypeRefund}); err != nil {
		t.Fatalf("record other: %v", err)
	}

	txs, err := mem.List(ctx, Filter{UserID: w.UserID, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if !txs[0].CreatedAt.After(txs[1].CreatedAt) {
		t.Fatalf("expected newest first")
	}
	refunds, _ := mem.List(ctx, Filter{Type: TypeRefund})
	if len(refunds) != 1 {
		t.Fatalf("expected 1 refund, got %d", len(refunds))
	}
}

func TestInMemoryLedger_PostRejectsSubCentAmounts(t *testing.T) {
	ctx := context.Background()
	repo := wallet.NewMemoryRepository()
	l := NewInMemory(repo)
	w := newWallet(t, repo)

	_, err := l.Post(ctx, Transaction{UserID: w.UserID, WalletID: w.ID, Amount: amount("0.004"), Type: TypeDeposit})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if !balance(t, repo, w.ID).IsZero() {
		t.Fatalf("rejected posting must not move balances")
	}
	if txs, _ := l.List(ctx, Filter{WalletID: w.ID}); len(txs) != 0 {
		t.Fatalf("rejected posting must not be stored, got %d", len(txs))
	}
}
