package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/marketplace/internal/wallet"
)

const selectColumns = `id, user_id, wallet_id, amount, fee, description,
        transaction_type, status, payment_type, service_id, created_at, updated_at`

// PostgresLedger persists transactions in PostgreSQL. Wallet rows are locked
// with SELECT ... FOR UPDATE, in id order, for the duration of each change.
type PostgresLedger struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Record validates tx against the locked wallet and inserts it.
func (l *PostgresLedger) Record(ctx context.Context, tx Transaction) (Transaction, error) {
	tx = normalize(tx, l.now())
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := checkInitialStatus(tx.Status); err != nil {
		return Transaction{}, err
	}

	dbTx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer dbTx.Rollback(ctx) // nolint:errcheck

	w, err := lockWallet(ctx, dbTx, tx.WalletID)
	if err != nil {
		return Transaction{}, err
	}
	if err := Validate(tx, w); err != nil {
		return Transaction{}, err
	}
	if err := insertTransaction(ctx, dbTx, tx); err != nil {
		return Transaction{}, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Get fetches a transaction by id.
func (l *PostgresLedger) Get(ctx context.Context, id string) (Transaction, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}
	return scanTransaction(l.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM financial_transactions WHERE id = $1`, txID))
}

// List returns matching transactions, newest first.
func (l *PostgresLedger) List(ctx context.Context, filter Filter) ([]Transaction, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	for _, f := range []struct {
		column string
		value  string
	}{{"user_id", filter.UserID}, {"wallet_id", filter.WalletID}} {
		if f.value == "" {
			continue
		}
		id, err := uuid.Parse(f.value)
		if err != nil {
			return []Transaction{}, nil
		}
		add(f.column+" = $%d", id)
	}
	if filter.Type != "" {
		add("transaction_type = $%d", string(filter.Type))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}

	query := `SELECT ` + selectColumns + ` FROM financial_transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Transition moves a transaction to status, applying the balance change when
// it completes.
func (l *PostgresLedger) Transition(ctx context.Context, id string, status Status) (Transaction, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}

	dbTx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer dbTx.Rollback(ctx) // nolint:errcheck

	tx, err := scanTransaction(dbTx.QueryRow(ctx, `SELECT `+selectColumns+`
        FROM financial_transactions WHERE id = $1 FOR UPDATE`, txID))
	if err != nil {
		return Transaction{}, err
	}
	if err := CheckTransition(tx.Status, status); err != nil {
		return Transaction{}, err
	}

	if status == StatusCompleted {
		w, err := lockWallet(ctx, dbTx, tx.WalletID)
		if err != nil {
			return Transaction{}, err
		}
		if err := Apply(&tx, w); err != nil {
			return Transaction{}, err
		}
		if w != nil {
			if err := wallet.SaveBalances(ctx, dbTx, *w); err != nil {
				return Transaction{}, err
			}
		}
	} else {
		tx.Status = status
	}
	tx.UpdatedAt = l.now()

	if _, err := dbTx.Exec(ctx, `UPDATE financial_transactions SET status = $2, updated_at = $3 WHERE id = $1`,
		txID, string(tx.Status), tx.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// Process completes a transaction.
func (l *PostgresLedger) Process(ctx context.Context, id string) (Transaction, error) {
	return l.Transition(ctx, id, StatusCompleted)
}

// Post records and completes txs in a single database transaction.
func (l *PostgresLedger) Post(ctx context.Context, txs ...Transaction) ([]Transaction, error) {
	now := l.now()

	dbTx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer dbTx.Rollback(ctx) // nolint:errcheck

	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		if tx.WalletID != "" {
			ids = append(ids, tx.WalletID)
		}
	}
	sort.Strings(ids)
	locked := make(map[string]*wallet.Wallet, len(ids))
	for _, id := range ids {
		if _, ok := locked[id]; ok {
			continue
		}
		w, err := lockWallet(ctx, dbTx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = w
	}

	posted := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		tx = normalize(tx, now)
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if err := checkInitialStatus(tx.Status); err != nil {
			return nil, err
		}
		w := locked[tx.WalletID]
		if err := Validate(tx, w); err != nil {
			return nil, err
		}
		if err := Apply(&tx, w); err != nil {
			return nil, err
		}
		if err := insertTransaction(ctx, dbTx, tx); err != nil {
			return nil, err
		}
		posted = append(posted, tx)
	}
	for _, w := range locked {
		if err := wallet.SaveBalances(ctx, dbTx, *w); err != nil {
			return nil, err
		}
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, err
	}
	return posted, nil
}

func lockWallet(ctx context.Context, tx pgx.Tx, id string) (*wallet.Wallet, error) {
	if id == "" {
		return nil, nil
	}
	walletID, err := uuid.Parse(id)
	if err != nil {
		return nil, wallet.ErrNotFound
	}
	w, err := wallet.ScanRow(tx.QueryRow(ctx, `SELECT `+wallet.SelectColumns+`
        FROM wallets WHERE id = $1 FOR UPDATE`, walletID))
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t Transaction) error {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	userID, err := nullableUUID(t.UserID)
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	walletID, err := nullableUUID(t.WalletID)
	if err != nil {
		return fmt.Errorf("wallet id: %w", err)
	}
	serviceID, err := nullableUUID(t.ServiceID)
	if err != nil {
		return fmt.Errorf("service id: %w", err)
	}
	_, err = tx.Exec(ctx, `INSERT INTO financial_transactions
        (id, user_id, wallet_id, amount, fee, description, transaction_type, status, payment_type, service_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, userID, walletID, t.Amount, t.Fee, t.Description,
		string(t.Type), string(t.Status), string(t.PaymentType), serviceID, t.CreatedAt, t.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateTransaction
	}
	return err
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		tx                          Transaction
		id                          uuid.UUID
		userID, walletID, serviceID pgtype.UUID
		txType, status, payment     string
	)
	err := row.Scan(&id, &userID, &walletID, &tx.Amount, &tx.Fee, &tx.Description,
		&txType, &status, &payment, &serviceID, &tx.CreatedAt, &tx.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	tx.ID = id.String()
	tx.UserID = uuidString(userID)
	tx.WalletID = uuidString(walletID)
	tx.ServiceID = uuidString(serviceID)
	tx.Type = Type(txType)
	tx.Status = Status(status)
	tx.PaymentType = PaymentType(payment)
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.UpdatedAt = tx.UpdatedAt.UTC()
	return tx, nil
}

func nullableUUID(id string) (pgtype.UUID, error) {
	if id == "" {
		return pgtype.UUID{}, nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func uuidString(v pgtype.UUID) string {
	if !v.Valid {
		return ""
	}
	return uuid.UUID(v.Bytes).String()
}
