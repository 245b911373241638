package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var (
	// ErrNotFound is returned when the wallet does not exist.
	ErrNotFound = errors.New("wallet not found")
	// ErrWalletExists is returned when the user already owns a wallet.
	ErrWalletExists = errors.New("wallet already exists for user")
	// ErrStripeNotConnected is returned when an operation needs a linked Stripe account.
	ErrStripeNotConnected = errors.New("stripe account not connected")
	// ErrStripeDisabled is returned when no Stripe client is configured.
	ErrStripeDisabled = errors.New("stripe integration disabled")
)

// BalanceFetcher reads the Stripe Connect balance of an account.
type BalanceFetcher interface {
	Balance(ctx context.Context, accountID string) (ConnectBalance, error)
}

// Service exposes wallet operations.
type Service struct {
	repo   Repository
	stripe BalanceFetcher
}

// NewService builds a wallet service instance. stripe may be nil.
func NewService(repo Repository, stripe BalanceFetcher) *Service {
	return &Service{repo: repo, stripe: stripe}
}

// Create provisions the wallet of a user.
func (s *Service) Create(ctx context.Context, userID string) (Wallet, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return Wallet{}, err
	}
	wallet := Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		return Wallet{}, err
	}
	wallet.UpdatedAt = wallet.CreatedAt
	return wallet, nil
}

// Get retrieves a wallet by id.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// GetByUser retrieves the wallet owned by userID, provisioning it when the
// user has none yet.
func (s *Service) GetByUser(ctx context.Context, userID string) (Wallet, error) {
	w, err := s.repo.GetByUser(ctx, userID)
	if !errors.Is(err, ErrNotFound) {
		return w, err
	}
	w, err = s.Create(ctx, userID)
	if errors.Is(err, ErrWalletExists) {
		return s.repo.GetByUser(ctx, userID)
	}
	return w, err
}

// List pages through all wallets, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Wallet, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// ConnectStripe links a Stripe Connect account to the wallet.
func (s *Service) ConnectStripe(ctx context.Context, walletID string, account StripeAccount) (Wallet, error) {
	account.AccountID = strings.TrimSpace(account.AccountID)
	if account.AccountID == "" {
		return Wallet{}, errors.New("stripe account id is required")
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	return s.repo.UpdateStripe(ctx, walletID, account)
}

// SyncConnectBalance refreshes the connect report from Stripe.
func (s *Service) SyncConnectBalance(ctx context.Context, walletID string) (Wallet, error) {
	if s.stripe == nil {
		return Wallet{}, ErrStripeDisabled
	}
	w, err := s.repo.Get(ctx, walletID)
	if err != nil {
		return Wallet{}, err
	}
	if !w.IsStripeConnected() {
		return Wallet{}, ErrStripeNotConnected
	}
	balance, err := s.stripe.Balance(ctx, w.Stripe.AccountID)
	if err != nil {
		return Wallet{}, err
	}
	return s.repo.UpdateConnectBalance(ctx, walletID, balance)
}
