package funding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/theplant/luhn"

	"github.com/taskhub/marketplace/internal/banking"
	"github.com/taskhub/marketplace/internal/ledger"
	"github.com/taskhub/marketplace/internal/wallet"
)

var (
	// ErrInvalidCard is returned for malformed or checksum-failing card numbers.
	ErrInvalidCard = errors.New("card number is not valid")
	// ErrCardExpired is returned when the card expiry is in the past.
	ErrCardExpired = errors.New("card is expired")
	// ErrDeclined is returned when the gateway refuses the request.
	ErrDeclined = errors.New("declined by gateway")
)

// Wallets resolves the wallet of a user.
type Wallets interface {
	GetByUser(ctx context.Context, userID string) (wallet.Wallet, error)
}

// BankAccounts resolves payout destinations.
type BankAccounts interface {
	ActiveAccount(ctx context.Context, userID, id string) (banking.BankAccount, error)
}

// Service coordinates card deposits and bank payouts using the ledger and gateway.
type Service struct {
	transactions *ledger.Service
	wallets      Wallets
	accounts     BankAccounts
	gateway      Gateway
	now          func() time.Time
}

// NewService prepares a funding service.
func NewService(transactions *ledger.Service, wallets Wallets, accounts BankAccounts, gateway Gateway) (*Service, error) {
	if transactions == nil || wallets == nil {
		return nil, fmt.Errorf("ledger and wallet services are required")
	}
	if gateway == nil {
		gateway = StaticGateway{}
	}
	return &Service{transactions: transactions, wallets: wallets, accounts: accounts, gateway: gateway, now: time.Now}, nil
}

// CardDepositInput captures the required data for a card top-up.
type CardDepositInput struct {
	UserID     string
	Amount     decimal.Decimal
	CardNumber string
	Expiry     string
	CVV        string
}

// PayoutInput captures the required data for a bank payout.
type PayoutInput struct {
	UserID        string
	BankAccountID string
	Amount        decimal.Decimal
}

// Result represents the domain outcome of a funding operation.
type Result struct {
	Transaction ledger.Transaction
	Reference   string
}

// CardDeposit authorizes a card top-up and credits the user's wallet.
func (s *Service) CardDeposit(ctx context.Context, input CardDepositInput) (Result, error) {
	card, err := validateCardNumber(input.CardNumber)
	if err != nil {
		return Result{}, err
	}
	if err := s.validateExpiry(input.Expiry); err != nil {
		return Result{}, err
	}
	if !input.Amount.IsPositive() {
		return Result{}, ledger.ErrInvalidAmount
	}
	w, err := s.wallets.GetByUser(ctx, input.UserID)
	if err != nil {
		return Result{}, err
	}

	decision, err := s.gateway.AuthorizeCardIn(ctx, CardInAuthorization{
		CardNumber: card,
		Expiry:     input.Expiry,
		CVV:        input.CVV,
		Amount:     input.Amount,
	})
	if err != nil {
		return Result{}, err
	}
	if !decision.Approved() {
		return Result{}, ErrDeclined
	}

	posted, err := s.transactions.Post(ctx, ledger.Transaction{
		UserID:      input.UserID,
		WalletID:    w.ID,
		Amount:      input.Amount,
		Description: fmt.Sprintf("Card deposit ****%s (%s)", card[len(card)-4:], decision.Reference),
		Type:        ledger.TypeDeposit,
		PaymentType: ledger.PaymentCard,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Transaction: posted[0], Reference: decision.Reference}, nil
}

// BankPayout debits the user's wallet and pays out to one of their bank
// accounts. The withdrawal is posted under the wallet lock before the gateway
// is asked. A payout the gateway does not approve is reversed with a refund.
func (s *Service) BankPayout(ctx context.Context, input PayoutInput) (Result, error) {
	if !input.Amount.IsPositive() {
		return Result{}, ledger.ErrInvalidAmount
	}
	if s.accounts == nil {
		return Result{}, banking.ErrAccountNotFound
	}
	account, err := s.accounts.ActiveAccount(ctx, input.UserID, input.BankAccountID)
	if err != nil {
		return Result{}, err
	}
	w, err := s.wallets.GetByUser(ctx, input.UserID)
	if err != nil {
		return Result{}, err
	}

	posted, err := s.transactions.Post(ctx, ledger.Transaction{
		UserID:      input.UserID,
		WalletID:    w.ID,
		Amount:      input.Amount,
		Description: fmt.Sprintf("Payout to %s", account),
		Type:        ledger.TypeWithdrawal,
		PaymentType: ledger.PaymentBankAccount,
	})
	if err != nil {
		return Result{}, err
	}
	withdrawal := posted[0]

	decision, err := s.gateway.AuthorizePayout(ctx, PayoutAuthorization{
		AccountHolder: account.AccountHolderName,
		AccountNumber: account.AccountNumber,
		AccountIBAN:   account.AccountIBAN,
		SwiftCode:     account.SwiftCode,
		Currency:      account.AccountCurrency,
		Amount:        input.Amount,
	})
	if err == nil && !decision.Approved() {
		err = ErrDeclined
	}
	if err != nil {
		if rerr := s.reverse(ctx, withdrawal); rerr != nil {
			return Result{}, errors.Join(err, rerr)
		}
		return Result{}, err
	}
	return Result{Transaction: withdrawal, Reference: decision.Reference}, nil
}

// reverse credits a withdrawal back to its wallet.
func (s *Service) reverse(ctx context.Context, withdrawal ledger.Transaction) error {
	_, err := s.transactions.Post(ctx, ledger.Transaction{
		UserID:      withdrawal.UserID,
		WalletID:    withdrawal.WalletID,
		Amount:      withdrawal.Amount,
		Description: fmt.Sprintf("Reversal of payout %s", withdrawal.ID),
		Type:        ledger.TypeRefund,
		PaymentType: withdrawal.PaymentType,
	})
	if err != nil {
		return fmt.Errorf("reverse payout %s: %w", withdrawal.ID, err)
	}
	return nil
}

func validateCardNumber(card string) (string, error) {
	digits := strings.ReplaceAll(strings.ReplaceAll(card, " ", ""), "-", "")
	if len(digits) < 12 || len(digits) > 19 {
		return "", fmt.Errorf("%w: must be between 12 and 19 digits", ErrInvalidCard)
	}
	n, err := strconv.Atoi(digits)
	if errors.Is(err, strconv.ErrRange) {
		return "", fmt.Errorf("%w: unsupported card number range", ErrInvalidCard)
	}
	if err != nil {
		return "", fmt.Errorf("%w: must be numeric", ErrInvalidCard)
	}
	if !luhn.Valid(n) {
		return "", ErrInvalidCard
	}
	return digits, nil
}

// validateExpiry accepts MM/YY or MM/YYYY. An empty expiry is not checked.
func (s *Service) validateExpiry(expiry string) error {
	expiry = strings.TrimSpace(expiry)
	if expiry == "" {
		return nil
	}
	layout := "01/06"
	if len(expiry) == len("01/2006") {
		layout = "01/2006"
	}
	month, err := time.Parse(layout, expiry)
	if err != nil {
		return fmt.Errorf("%w: expiry must be MM/YY", ErrInvalidCard)
	}
	if !s.now().Before(month.AddDate(0, 1, 0)) {
		return ErrCardExpired
	}
	return nil
}
