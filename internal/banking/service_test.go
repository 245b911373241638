package banking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestCreateAccountDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	bank, err := svc.CreateBank(ctx, "First Bank")
	if err != nil {
		t.Fatalf("create bank: %v", err)
	}
	userID := uuid.NewString()

	account, err := svc.CreateAccount(ctx, userID, AccountInput{
		AccountHolderName: "Ada Lovelace",
		AccountNumber:     "1234 5678",
		AccountCurrency:   "eur",
		BankID:            bank.ID,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if account.AccountType != AccountChecking || account.AccountCurrency != "EUR" {
		t.Fatalf("unexpected defaults: %s %s", account.AccountType, account.AccountCurrency)
	}
	if got := account.String(); got != "Ada Lovelace - First Bank (12345678)" {
		t.Fatalf("unexpected display %q", got)
	}

	fetched, err := svc.GetAccount(ctx, userID, account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if fetched.BankName != "First Bank" {
		t.Fatalf("expected bank name to be loaded, got %q", fetched.BankName)
	}
	if _, err := svc.GetAccount(ctx, uuid.NewString(), account.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected other users to get not found, got %v", err)
	}
}

func TestCreateAccountRequiresIdentifier(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	bank, _ := svc.CreateBank(ctx, "Bank")
	if _, err := svc.CreateAccount(ctx, uuid.NewString(), AccountInput{AccountHolderName: "A", BankID: bank.ID}); !errors.Is(err, ErrAccountIdentifier) {
		t.Fatalf("expected identifier error, got %v", err)
	}
	if _, err := svc.CreateAccount(ctx, uuid.NewString(), AccountInput{AccountHolderName: "A", AccountNumber: "1", BankID: uuid.NewString()}); !errors.Is(err, ErrBankNotFound) {
		t.Fatalf("expected bank not found, got %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())
	bank, _ := svc.CreateBank(ctx, "Bank")
	userID := uuid.NewString()
	account, err := svc.CreateAccount(ctx, userID, AccountInput{AccountHolderName: "A", AccountIBAN: "de89 3704 0044 0532 0130 00", BankID: bank.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if account.AccountIBAN != "DE89370400440532013000" {
		t.Fatalf("expected normalized IBAN, got %s", account.AccountIBAN)
	}
	if err := svc.Deactivate(ctx, uuid.NewString(), account.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected foreign deactivate to fail, got %v", err)
	}
	if err := svc.Deactivate(ctx, userID, account.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.ActiveAccount(ctx, userID, account.ID); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected inactive account, got %v", err)
	}
	banks, _ := svc.ListBanks(ctx, false)
	if len(banks) != 1 {
		t.Fatalf("expected 1 bank, got %d", len(banks))
	}
}
