package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/taskhub/marketplace/internal/wallet"
)

var (
	// ErrNotFound is returned when the transaction does not exist.
	ErrNotFound = errors.New("transaction not found")

	// ErrInvalidAmount occurs when the amount is zero or negative.
	ErrInvalidAmount = errors.New("transaction amount must be greater than zero")

	// ErrInvalidFee occurs when the fee is negative.
	ErrInvalidFee = errors.New("transaction fee cannot be negative")

	// ErrWalletRequired occurs when a withdrawal or charge names no wallet.
	ErrWalletRequired = errors.New("wallet is required for withdrawals and charges")

	// ErrInsufficientFunds occurs when the wallet's available balance cannot
	// cover a withdrawal or charge.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrCompletedImmutable occurs when a completed transaction would change status.
	ErrCompletedImmutable = errors.New("completed transactions cannot be modified")

	// ErrInvalidTransition occurs when the requested status cannot follow the current one.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateTransaction indicates a transaction with the same id already
	// exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrInvalidType, ErrInvalidStatus and ErrInvalidPaymentType reject unknown enum values.
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidStatus      = errors.New("invalid transaction status")
	ErrInvalidPaymentType = errors.New("invalid payment type")
)

// Type is the kind of a transaction.
type Type string

const (
	TypeDeposit    Type = "deposit"
	TypeWithdrawal Type = "withdrawal"
	TypeCharge     Type = "charge"
	TypeRefund     Type = "refund"
)

// Valid reports whether t is a known transaction type.
func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeCharge, TypeRefund:
		return true
	}
	return false
}

// Debits reports whether the type removes funds from the wallet.
func (t Type) Debits() bool {
	return t == TypeWithdrawal || t == TypeCharge
}

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Final reports whether no further transition is allowed out of s.
func (s Status) Final() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// PaymentType is the rail a transaction moved through.
type PaymentType string

const (
	PaymentConnect     PaymentType = "connect"
	PaymentPaypal      PaymentType = "paypal"
	PaymentBankAccount PaymentType = "bank_account"
	PaymentCard        PaymentType = "card"
)

// Valid reports whether p is a known payment type.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentConnect, PaymentPaypal, PaymentBankAccount, PaymentCard:
		return true
	}
	return false
}

// Transaction is a financial movement against a wallet.
type Transaction struct {
	ID          string
	UserID      string
	WalletID    string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Description string
	Type        Type
	Status      Status
	PaymentType PaymentType
	ServiceID   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	UserID   string
	WalletID string
	Type     Type
	Status   Status
	Limit    int
	Offset   int
}

// Matches reports whether tx satisfies the filter.
func (f Filter) Matches(tx Transaction) bool {
	if f.UserID != "" && tx.UserID != f.UserID {
		return false
	}
	if f.WalletID != "" && tx.WalletID != f.WalletID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	return true
}

// Ledger stores transactions and applies them to wallet balances. Every
// balance change happens while the affected wallets are locked.
type Ledger interface {
	// Record validates and stores a new transaction without touching balances.
	Record(ctx context.Context, tx Transaction) (Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	// List returns matching transactions, newest first.
	List(ctx context.Context, filter Filter) ([]Transaction, error)
	// Transition moves a transaction to status. Moving to completed applies
	// the balance change.
	Transition(ctx context.Context, id string, status Status) (Transaction, error)
	// Process completes a transaction.
	Process(ctx context.Context, id string) (Transaction, error)
	// Post records and completes all txs as one unit.
	Post(ctx context.Context, txs ...Transaction) ([]Transaction, error)
}

// Validate checks the invariants of tx against the wallet it targets. w is
// nil when the transaction names no wallet.
func Validate(tx Transaction, w *wallet.Wallet) error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if !tx.Status.Valid() {
		return ErrInvalidStatus
	}
	if !tx.PaymentType.Valid() {
		return ErrInvalidPaymentType
	}
	if !tx.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !wholeCents(tx.Amount) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, moneyScale)
	}
	if tx.Fee.IsNegative() {
		return ErrInvalidFee
	}
	if !wholeCents(tx.Fee) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidFee, moneyScale)
	}
	if tx.Type.Debits() {
		if w == nil {
			return ErrWalletRequired
		}
		if w.AvailableBalance().LessThan(tx.Amount) {
			return ErrInsufficientFunds
		}
	}
	return nil
}

// moneyScale is the number of decimal places stored for money columns.
const moneyScale = 2

// wholeCents reports whether d fits the stored money scale without rounding.
func wholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(moneyScale))
}

// CheckTransition reports whether a transaction may move from one status to another.
func CheckTransition(from, to Status) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if from == StatusCompleted {
		return ErrCompletedImmutable
	}
	if from.Final() {
		return ErrInvalidTransition
	}
	return nil
}

// Apply performs the balance change of tx on w and marks tx completed.
// Debits are checked against the available balance at apply time.
func Apply(tx *Transaction, w *wallet.Wallet) error {
	if w == nil {
		if tx.Type.Debits() {
			return ErrWalletRequired
		}
		tx.Status = StatusCompleted
		return nil
	}
	switch tx.Type {
	case TypeWithdrawal, TypeCharge:
		if w.BalanceAvailable.LessThan(tx.Amount) {
			return ErrInsufficientFunds
		}
		w.BalanceAvailable = w.BalanceAvailable.Sub(tx.Amount)
		if tx.Type == TypeWithdrawal {
			w.TotalWithdrawals = w.TotalWithdrawals.Add(tx.Amount)
		}
	case TypeDeposit, TypeRefund:
		w.BalanceAvailable = w.BalanceAvailable.Add(tx.Amount)
		if tx.Type == TypeDeposit {
			w.TotalDeposits = w.TotalDeposits.Add(tx.Amount)
			if tx.ServiceID != "" {
				w.TotalEarnings = w.TotalEarnings.Add(tx.Amount)
			}
		}
	default:
		return ErrInvalidType
	}
	w.TotalAmounts = w.TotalAmounts.Add(tx.Amount)
	tx.Status = StatusCompleted
	return nil
}

func normalize(tx Transaction, now time.Time) Transaction {
	if tx.Status == "" {
		tx.Status = StatusPending
	}
	if tx.PaymentType == "" {
		tx.PaymentType = PaymentBankAccount
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	return tx
}

func checkInitialStatus(s Status) error {
	switch s {
	case StatusPending, StatusProcessing, StatusAccepted:
		return nil
	}
	return ErrInvalidStatus
}
