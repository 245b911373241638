package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/marketplace/internal/wallet"
)

// WalletStore is the subset of wallet.Repository used by the in-memory ledger.
type WalletStore interface {
	Get(ctx context.Context, id string) (wallet.Wallet, error)
	SaveBalances(ctx context.Context, w wallet.Wallet) error
}

type inMemoryLedger struct {
	mu           sync.Mutex
	wallets      WalletStore
	transactions map[string]Transaction
	now          func() time.Time
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and local runs. A single mutex serialises every balance mutation.
func NewInMemory(wallets WalletStore) Ledger {
	return &inMemoryLedger{
		wallets:      wallets,
		transactions: make(map[string]Transaction),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (l *inMemoryLedger) Record(ctx context.Context, tx Transaction) (Transaction, error) {
	tx = normalize(tx, l.now())
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := checkInitialStatus(tx.Status); err != nil {
		return Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.transactions[tx.ID]; exists {
		return Transaction{}, ErrDuplicateTransaction
	}
	w, err := l.loadWallet(ctx, tx.WalletID)
	if err != nil {
		return Transaction{}, err
	}
	if err := Validate(tx, w); err != nil {
		return Transaction{}, err
	}
	l.transactions[tx.ID] = tx
	return tx, nil
}

func (l *inMemoryLedger) Get(_ context.Context, id string) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.transactions[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return tx, nil
}

func (l *inMemoryLedger) List(_ context.Context, filter Filter) ([]Transaction, error) {
	l.mu.Lock()
	out := make([]Transaction, 0)
	for _, tx := range l.transactions {
		if filter.Matches(tx) {
			out = append(out, tx)
		}
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []Transaction{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (l *inMemoryLedger) Transition(ctx context.Context, id string, status Status) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.transactions[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	if err := CheckTransition(tx.Status, status); err != nil {
		return Transaction{}, err
	}
	if status == StatusCompleted {
		w, err := l.loadWallet(ctx, tx.WalletID)
		if err != nil {
			return Transaction{}, err
		}
		if err := Apply(&tx, w); err != nil {
			return Transaction{}, err
		}
		if w != nil {
			if err := l.wallets.SaveBalances(ctx, *w); err != nil {
				return Transaction{}, err
			}
		}
	} else {
		tx.Status = status
	}
	tx.UpdatedAt = l.now()
	l.transactions[id] = tx
	return tx, nil
}

func (l *inMemoryLedger) Process(ctx context.Context, id string) (Transaction, error) {
	return l.Transition(ctx, id, StatusCompleted)
}

func (l *inMemoryLedger) Post(ctx context.Context, txs ...Transaction) ([]Transaction, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	touched := make(map[string]*wallet.Wallet)
	seen := make(map[string]struct{}, len(txs))
	posted := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		tx = normalize(tx, now)
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if _, exists := l.transactions[tx.ID]; exists {
			return nil, ErrDuplicateTransaction
		}
		if _, dup := seen[tx.ID]; dup {
			return nil, ErrDuplicateTransaction
		}
		seen[tx.ID] = struct{}{}
		if err := checkInitialStatus(tx.Status); err != nil {
			return nil, err
		}

		var w *wallet.Wallet
		if tx.WalletID != "" {
			if cached, ok := touched[tx.WalletID]; ok {
				w = cached
			} else {
				loaded, err := l.loadWallet(ctx, tx.WalletID)
				if err != nil {
					return nil, err
				}
				touched[tx.WalletID] = loaded
				w = loaded
			}
		}
		if err := Validate(tx, w); err != nil {
			return nil, err
		}
		if err := Apply(&tx, w); err != nil {
			return nil, err
		}
		posted = append(posted, tx)
	}

	for _, w := range touched {
		if err := l.wallets.SaveBalances(ctx, *w); err != nil {
			return nil, err
		}
	}
	for _, tx := range posted {
		l.transactions[tx.ID] = tx
	}
	return posted, nil
}

func (l *inMemoryLedger) loadWallet(ctx context.Context, id string) (*wallet.Wallet, error) {
	if id == "" {
		return nil, nil
	}
	w, err := l.wallets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
