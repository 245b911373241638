package banking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrBankNotFound is returned when the bank does not exist.
	ErrBankNotFound = errors.New("bank not found")
	// ErrBankInactive is returned when an account is opened at a disabled bank.
	ErrBankInactive = errors.New("bank is not active")
	// ErrAccountNotFound is returned when the account does not exist or is not visible.
	ErrAccountNotFound = errors.New("bank account not found")
	// ErrAccountInactive is returned when a payout targets a deactivated account.
	ErrAccountInactive = errors.New("bank account is not active")
	// ErrAccountIdentifier is returned when neither an account number nor an IBAN is given.
	ErrAccountIdentifier = errors.New("account number or IBAN is required")
)

// AccountInput carries the writable fields of a bank account.
type AccountInput struct {
	AccountHolderName string
	AccountNumber     string
	AccountIBAN       string
	AccountType       string
	AccountCurrency   string
	SwiftCode         string
	RoutingNumber     string
	BankID            string
	CountryID         *int64
	BankCity          string
	BankAddress       string
	BankPostalCode    string
}

// Service manages banks and user bank accounts.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a banking service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// CreateBank registers an active bank.
func (s *Service) CreateBank(ctx context.Context, name string) (Bank, error) {
	bank := Bank{ID: uuid.NewString(), Name: strings.TrimSpace(name), IsActive: true, CreatedAt: s.now()}
	if err := s.repo.CreateBank(ctx, bank); err != nil {
		return Bank{}, err
	}
	return bank, nil
}

// ListBanks returns banks; inactive ones only when includeInactive is set.
func (s *Service) ListBanks(ctx context.Context, includeInactive bool) ([]Bank, error) {
	return s.repo.ListBanks(ctx, !includeInactive)
}

// CreateAccount opens a bank account for userID at an active bank.
func (s *Service) CreateAccount(ctx context.Context, userID string, in AccountInput) (BankAccount, error) {
	bank, err := s.repo.GetBank(ctx, in.BankID)
	if err != nil {
		return BankAccount{}, err
	}
	if !bank.IsActive {
		return BankAccount{}, ErrBankInactive
	}
	number := strings.ReplaceAll(strings.TrimSpace(in.AccountNumber), " ", "")
	iban := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(in.AccountIBAN), " ", ""))
	if number == "" && iban == "" {
		return BankAccount{}, ErrAccountIdentifier
	}
	accountType := in.AccountType
	if accountType == "" {
		accountType = AccountChecking
	}
	currency := strings.ToUpper(strings.TrimSpace(in.AccountCurrency))
	if currency == "" {
		currency = "USD"
	}

	account := BankAccount{
		ID:                uuid.NewString(),
		UserID:            userID,
		AccountHolderName: strings.TrimSpace(in.AccountHolderName),
		AccountNumber:     number,
		AccountIBAN:       iban,
		AccountType:       accountType,
		AccountCurrency:   currency,
		SwiftCode:         strings.ToUpper(strings.TrimSpace(in.SwiftCode)),
		RoutingNumber:     strings.TrimSpace(in.RoutingNumber),
		BankID:            bank.ID,
		BankName:          bank.Name,
		CountryID:         in.CountryID,
		BankCity:          in.BankCity,
		BankAddress:       in.BankAddress,
		BankPostalCode:    in.BankPostalCode,
		IsActive:          true,
		CreatedAt:         s.now(),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return BankAccount{}, err
	}
	return account, nil
}

// ListAccounts returns the bank accounts of userID.
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]BankAccount, error) {
	return s.repo.ListAccounts(ctx, userID)
}

// GetAccount returns an account owned by userID.
func (s *Service) GetAccount(ctx context.Context, userID, id string) (BankAccount, error) {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return BankAccount{}, err
	}
	if account.UserID != userID {
		return BankAccount{}, ErrAccountNotFound
	}
	return account, nil
}

// ActiveAccount returns an account owned by userID that can receive payouts.
func (s *Service) ActiveAccount(ctx context.Context, userID, id string) (BankAccount, error) {
	account, err := s.GetAccount(ctx, userID, id)
	if err != nil {
		return BankAccount{}, err
	}
	if !account.IsActive {
		return BankAccount{}, ErrAccountInactive
	}
	return account, nil
}

// Deactivate disables an account owned by userID.
func (s *Service) Deactivate(ctx context.Context, userID, id string) error {
	if _, err := s.GetAccount(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.SetAccountActive(ctx, id, false)
}
