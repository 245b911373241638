package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskhub/marketplace/internal/metrics"
	"github.com/taskhub/marketplace/internal/notification"
	"github.com/taskhub/marketplace/internal/wallet"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ErrWalletMismatch is returned when a transaction targets a wallet the user does not own.
var ErrWalletMismatch = errors.New("wallet does not belong to user")

// WalletLookup resolves wallets for transaction requests.
type WalletLookup interface {
	Get(ctx context.Context, id string) (wallet.Wallet, error)
	GetByUser(ctx context.Context, userID string) (wallet.Wallet, error)
}

// Service applies access rules on top of a Ledger and reports completed
// transactions to metrics and notifications.
type Service struct {
	ledger   Ledger
	wallets  WalletLookup
	notifier notification.Notifier
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewService constructs a transaction service. notifier, collector and logger may be nil.
func NewService(l Ledger, wallets WalletLookup, notifier notification.Notifier, collector *metrics.Collector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: l, wallets: wallets, notifier: notifier, metrics: collector, logger: logger}
}

// Create records a transaction for tx.UserID. When no wallet is named the
// user's own wallet is used.
func (s *Service) Create(ctx context.Context, tx Transaction) (Transaction, error) {
	if tx.WalletID == "" {
		w, err := s.wallets.GetByUser(ctx, tx.UserID)
		if err != nil && !errors.Is(err, wallet.ErrNotFound) {
			return Transaction{}, err
		}
		tx.WalletID = w.ID
	} else {
		w, err := s.wallets.Get(ctx, tx.WalletID)
		if err != nil {
			return Transaction{}, err
		}
		if w.UserID != tx.UserID {
			return Transaction{}, ErrWalletMismatch
		}
	}
	created, err := s.ledger.Record(ctx, tx)
	if err != nil {
		return Transaction{}, err
	}
	s.metrics.TransactionRecorded(string(created.Type), string(created.Status))
	return created, nil
}

// Get returns a transaction visible to the caller. Non-staff callers only see
// their own transactions.
func (s *Service) Get(ctx context.Context, id, userID string, staff bool) (Transaction, error) {
	tx, err := s.ledger.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if !staff && tx.UserID != userID {
		return Transaction{}, ErrNotFound
	}
	return tx, nil
}

// List pages through transactions visible to the caller.
func (s *Service) List(ctx context.Context, filter Filter, userID string, staff bool) ([]Transaction, error) {
	if !staff {
		filter.UserID = userID
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.ledger.List(ctx, filter)
}

// SetStatus moves a transaction to status.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Transaction, error) {
	tx, err := s.ledger.Transition(ctx, id, status)
	if err != nil {
		return Transaction{}, err
	}
	s.completed(ctx, tx)
	return tx, nil
}

// Process completes a transaction and applies it to the wallet.
func (s *Service) Process(ctx context.Context, id string) (Transaction, error) {
	tx, err := s.ledger.Process(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	s.completed(ctx, tx)
	return tx, nil
}

// Post records and completes txs atomically.
func (s *Service) Post(ctx context.Context, txs ...Transaction) ([]Transaction, error) {
	posted, err := s.ledger.Post(ctx, txs...)
	if err != nil {
		return nil, err
	}
	for _, tx := range posted {
		s.completed(ctx, tx)
	}
	return posted, nil
}

func (s *Service) completed(ctx context.Context, tx Transaction) {
	s.metrics.TransactionRecorded(string(tx.Type), string(tx.Status))
	if tx.Status != StatusCompleted {
		return
	}
	s.logger.InfoContext(ctx, "transaction completed",
		"transaction_id", tx.ID, "type", tx.Type, "amount", tx.Amount.StringFixed(2), "wallet_id", tx.WalletID)
	if s.notifier == nil || tx.UserID == "" {
		return
	}
	err := s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindTransactionCompleted,
		Destination: tx.UserID,
		Body:        fmt.Sprintf("Your %s of %s is completed", tx.Type, tx.Amount.StringFixed(2)),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "notification failed", "transaction_id", tx.ID, "error", err)
	}
}
