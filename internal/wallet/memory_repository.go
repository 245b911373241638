package wallet

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Wallet
}

// NewMemoryRepository constructs an in-memory repository for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.storage {
		if existing.ID == wallet.ID || existing.UserID == wallet.UserID {
			return ErrWalletExists
		}
	}
	wallet.UpdatedAt = wallet.CreatedAt
	r.storage[wallet.ID] = wallet
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wallet, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return wallet, nil
}

func (r *memoryRepository) GetByUser(_ context.Context, userID string) (Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, wallet := range r.storage {
		if wallet.UserID == userID {
			return wallet, nil
		}
	}
	return Wallet{}, ErrNotFound
}

func (r *memoryRepository) List(_ context.Context, limit, offset int) ([]Wallet, error) {
	r.mu.RLock()
	wallets := make([]Wallet, 0, len(r.storage))
	for _, wallet := range r.storage {
		wallets = append(wallets, wallet)
	}
	r.mu.RUnlock()

	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].CreatedAt.Equal(wallets[j].CreatedAt) {
			return wallets[i].ID > wallets[j].ID
		}
		return wallets[i].CreatedAt.After(wallets[j].CreatedAt)
	})
	if offset >= len(wallets) {
		return []Wallet{}, nil
	}
	wallets = wallets[offset:]
	if limit > 0 && limit < len(wallets) {
		wallets = wallets[:limit]
	}
	return wallets, nil
}

func (r *memoryRepository) UpdateStripe(_ context.Context, id string, account StripeAccount) (Wallet, error) {
	return r.mutate(id, func(w *Wallet) { w.Stripe = account })
}

func (r *memoryRepository) UpdateConnectBalance(_ context.Context, id string, balance ConnectBalance) (Wallet, error) {
	return r.mutate(id, func(w *Wallet) { w.Connect = balance })
}

func (r *memoryRepository) SaveBalances(_ context.Context, wallet Wallet) error {
	_, err := r.mutate(wallet.ID, func(w *Wallet) { w.Balances = wallet.Balances })
	return err
}

func (r *memoryRepository) mutate(id string, fn func(*Wallet)) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.storage[id]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	fn(&wallet)
	wallet.UpdatedAt = time.Now().UTC()
	r.storage[id] = wallet
	return wallet, nil
}
