package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists wallets. Balance columns are written only through
// SaveBalances, which callers must invoke while holding the wallet lock.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, id string) (Wallet, error)
	GetByUser(ctx context.Context, userID string) (Wallet, error)
	List(ctx context.Context, limit, offset int) ([]Wallet, error)
	UpdateStripe(ctx context.Context, id string, account StripeAccount) (Wallet, error)
	UpdateConnectBalance(ctx context.Context, id string, balance ConnectBalance) (Wallet, error)
	SaveBalances(ctx context.Context, wallet Wallet) error
}

// SelectColumns lists the wallet columns in the order expected by ScanRow.
const SelectColumns = `id, user_id, description,
        stripe_account_id, stripe_account_type, stripe_account_country, stripe_account_email,
        stripe_description, stripe_is_active,
        total_amounts, total_deposits, total_earnings, total_withdrawals,
        balance_available, balance_pending, outstanding_charges,
        connect_available_balance, connect_available_balance_currency,
        connect_pending_balance, connect_pending_balance_currency,
        created_at, updated_at`

// ScanRow reads a wallet selected with SelectColumns.
func ScanRow(row pgx.Row) (Wallet, error) {
	var (
		w      Wallet
		id     uuid.UUID
		userID uuid.UUID
	)
	err := row.Scan(&id, &userID, &w.Description,
		&w.Stripe.AccountID, &w.Stripe.AccountType, &w.Stripe.Country, &w.Stripe.Email,
		&w.Stripe.Description, &w.Stripe.Active,
		&w.TotalAmounts, &w.TotalDeposits, &w.TotalEarnings, &w.TotalWithdrawals,
		&w.BalanceAvailable, &w.BalancePending, &w.OutstandingCharges,
		&w.Connect.Available, &w.Connect.AvailableCurrency,
		&w.Connect.Pending, &w.Connect.PendingCurrency,
		&w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrNotFound
	}
	if err != nil {
		return Wallet{}, err
	}
	w.ID = id.String()
	w.UserID = userID.String()
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(wallet.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, user_id, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)`, walletID, userID, wallet.Description, wallet.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrWalletExists
	}
	return err
}

// Get fetches a wallet by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	return ScanRow(r.db.QueryRow(ctx, `SELECT `+SelectColumns+` FROM wallets WHERE id = $1`, walletID))
}

// GetByUser fetches the wallet owned by userID.
func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (Wallet, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	return ScanRow(r.db.QueryRow(ctx, `SELECT `+SelectColumns+` FROM wallets WHERE user_id = $1`, uid))
}

// List returns wallets, newest first.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]Wallet, error) {
	rows, err := r.db.Query(ctx, `SELECT `+SelectColumns+` FROM wallets
        ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	wallets := []Wallet{}
	for rows.Next() {
		w, err := ScanRow(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// UpdateStripe replaces the linked Stripe account details.
func (r *PostgresRepository) UpdateStripe(ctx context.Context, id string, account StripeAccount) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	return ScanRow(r.db.QueryRow(ctx, `UPDATE wallets SET
            stripe_account_id = $2, stripe_account_type = $3, stripe_account_country = $4,
            stripe_account_email = $5, stripe_description = $6, stripe_is_active = $7, updated_at = now()
        WHERE id = $1 RETURNING `+SelectColumns,
		walletID, account.AccountID, account.AccountType, account.Country, account.Email, account.Description, account.Active))
}

// UpdateConnectBalance stores the latest Stripe Connect balance.
func (r *PostgresRepository) UpdateConnectBalance(ctx context.Context, id string, balance ConnectBalance) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	return ScanRow(r.db.QueryRow(ctx, `UPDATE wallets SET
            connect_available_balance = $2, connect_available_balance_currency = $3,
            connect_pending_balance = $4, connect_pending_balance_currency = $5, updated_at = now()
        WHERE id = $1 RETURNING `+SelectColumns,
		walletID, balance.Available, balance.AvailableCurrency, balance.Pending, balance.PendingCurrency))
}

// SaveBalances writes the balance report columns.
func (r *PostgresRepository) SaveBalances(ctx context.Context, wallet Wallet) error {
	return SaveBalances(ctx, r.db, wallet)
}

// Execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// SaveBalances writes the balance report columns using db, which may be a
// transaction that holds the wallet row lock.
func SaveBalances(ctx context.Context, db Execer, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := db.Exec(ctx, `UPDATE wallets SET
            total_amounts = $2, total_deposits = $3, total_earnings = $4, total_withdrawals = $5,
            balance_available = $6, balance_pending = $7, outstanding_charges = $8, updated_at = now()
        WHERE id = $1`, walletID,
		wallet.TotalAmounts, wallet.TotalDeposits, wallet.TotalEarnings, wallet.TotalWithdrawals,
		wallet.BalanceAvailable, wallet.BalancePending, wallet.OutstandingCharges)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
