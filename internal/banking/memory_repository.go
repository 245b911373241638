package banking

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	banks    map[string]Bank
	accounts map[string]BankAccount
}

// NewMemoryRepository constructs an in-memory repository for tests and local runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{banks: make(map[string]Bank), accounts: make(map[string]BankAccount)}
}

func (r *memoryRepository) CreateBank(_ context.Context, bank Bank) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banks[bank.ID] = bank
	return nil
}

func (r *memoryRepository) GetBank(_ context.Context, id string) (Bank, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bank, ok := r.banks[id]
	if !ok {
		return Bank{}, ErrBankNotFound
	}
	return bank, nil
}

func (r *memoryRepository) ListBanks(_ context.Context, activeOnly bool) ([]Bank, error) {
	r.mu.RLock()
	banks := make([]Bank, 0, len(r.banks))
	for _, bank := range r.banks {
		if activeOnly && !bank.IsActive {
			continue
		}
		banks = append(banks, bank)
	}
	r.mu.RUnlock()
	sort.Slice(banks, func(i, j int) bool { return banks[i].Name < banks[j].Name })
	return banks, nil
}

func (r *memoryRepository) CreateAccount(_ context.Context, account BankAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.banks[account.BankID]; !ok {
		return ErrBankNotFound
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *memoryRepository) GetAccount(_ context.Context, id string) (BankAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.accounts[id]
	if !ok {
		return BankAccount{}, ErrAccountNotFound
	}
	account.BankName = r.banks[account.BankID].Name
	return account, nil
}

func (r *memoryRepository) ListAccounts(_ context.Context, userID string) ([]BankAccount, error) {
	r.mu.RLock()
	accounts := make([]BankAccount, 0)
	for _, account := range r.accounts {
		if account.UserID == userID {
			account.BankName = r.banks[account.BankID].Name
			accounts = append(accounts, account)
		}
	}
	r.mu.RUnlock()
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.After(accounts[j].CreatedAt) })
	return accounts, nil
}

func (r *memoryRepository) SetAccountActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	account.IsActive = active
	r.accounts[id] = account
	return nil
}
