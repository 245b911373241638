package banking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists banks and bank accounts.
type Repository interface {
	CreateBank(ctx context.Context, bank Bank) error
	GetBank(ctx context.Context, id string) (Bank, error)
	ListBanks(ctx context.Context, activeOnly bool) ([]Bank, error)
	CreateAccount(ctx context.Context, account BankAccount) error
	GetAccount(ctx context.Context, id string) (BankAccount, error)
	ListAccounts(ctx context.Context, userID string) ([]BankAccount, error)
	SetAccountActive(ctx context.Context, id string, active bool) error
}

// PostgresRepository stores banking data in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateBank inserts a bank.
func (r *PostgresRepository) CreateBank(ctx context.Context, bank Bank) error {
	id, err := uuid.Parse(bank.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO banks (id, name, is_active, created_at) VALUES ($1, $2, $3, $4)`,
		id, bank.Name, bank.IsActive, bank.CreatedAt)
	return err
}

// GetBank fetches a bank by id.
func (r *PostgresRepository) GetBank(ctx context.Context, id string) (Bank, error) {
	bankID, err := uuid.Parse(id)
	if err != nil {
		return Bank{}, ErrBankNotFound
	}
	var (
		bank Bank
		uid  uuid.UUID
	)
	err = r.db.QueryRow(ctx, `SELECT id, name, is_active, created_at FROM banks WHERE id = $1`, bankID).
		Scan(&uid, &bank.Name, &bank.IsActive, &bank.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bank{}, ErrBankNotFound
	}
	if err != nil {
		return Bank{}, err
	}
	bank.ID = uid.String()
	return bank, nil
}

// ListBanks returns banks ordered by name.
func (r *PostgresRepository) ListBanks(ctx context.Context, activeOnly bool) ([]Bank, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, is_active, created_at FROM banks
        WHERE is_active OR NOT $1 ORDER BY name`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	banks := []Bank{}
	for rows.Next() {
		var (
			bank Bank
			uid  uuid.UUID
		)
		if err := rows.Scan(&uid, &bank.Name, &bank.IsActive, &bank.CreatedAt); err != nil {
			return nil, err
		}
		bank.ID = uid.String()
		banks = append(banks, bank)
	}
	return banks, rows.Err()
}

// CreateAccount inserts a bank account.
func (r *PostgresRepository) CreateAccount(ctx context.Context, a BankAccount) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(a.UserID)
	if err != nil {
		return err
	}
	bankID, err := uuid.Parse(a.BankID)
	if err != nil {
		return ErrBankNotFound
	}
	_, err = r.db.Exec(ctx, `INSERT INTO bank_accounts (id, user_id, account_holder_name, account_number,
            account_iban, account_type, account_currency, swift_code, routing_number, bank_id, country_id,
            bank_city, bank_address, bank_postal_code, is_active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		id, userID, a.AccountHolderName, a.AccountNumber, a.AccountIBAN, a.AccountType, a.AccountCurrency,
		a.SwiftCode, a.RoutingNumber, bankID, a.CountryID, a.BankCity, a.BankAddress, a.BankPostalCode,
		a.IsActive, a.CreatedAt)
	return err
}

const accountColumns = `a.id, a.user_id, a.account_holder_name, a.account_number, a.account_iban,
        a.account_type, a.account_currency, a.swift_code, a.routing_number, a.bank_id, b.name,
        a.country_id, a.bank_city, a.bank_address, a.bank_postal_code, a.is_active, a.created_at`

func scanAccount(row pgx.Row) (BankAccount, error) {
	var (
		a                  BankAccount
		id, userID, bankID uuid.UUID
	)
	err := row.Scan(&id, &userID, &a.AccountHolderName, &a.AccountNumber, &a.AccountIBAN,
		&a.AccountType, &a.AccountCurrency, &a.SwiftCode, &a.RoutingNumber, &bankID, &a.BankName,
		&a.CountryID, &a.BankCity, &a.BankAddress, &a.BankPostalCode, &a.IsActive, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankAccount{}, ErrAccountNotFound
	}
	if err != nil {
		return BankAccount{}, err
	}
	a.ID = id.String()
	a.UserID = userID.String()
	a.BankID = bankID.String()
	return a, nil
}

// GetAccount fetches a bank account with its bank name.
func (r *PostgresRepository) GetAccount(ctx context.Context, id string) (BankAccount, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return BankAccount{}, ErrAccountNotFound
	}
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+`
        FROM bank_accounts a JOIN banks b ON b.id = a.bank_id WHERE a.id = $1`, accountID))
}

// ListAccounts returns the accounts of a user, newest first.
func (r *PostgresRepository) ListAccounts(ctx context.Context, userID string) ([]BankAccount, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return []BankAccount{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+`
        FROM bank_accounts a JOIN banks b ON b.id = a.bank_id
        WHERE a.user_id = $1 ORDER BY a.created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := []BankAccount{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SetAccountActive toggles the active flag of an account.
func (r *PostgresRepository) SetAccountActive(ctx context.Context, id string, active bool) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrAccountNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE bank_accounts SET is_active = $2 WHERE id = $1`, accountID, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
