package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskhub/marketplace/internal/catalog"
	"github.com/taskhub/marketplace/internal/ledger"
	"github.com/taskhub/marketplace/internal/notification"
	"github.com/taskhub/marketplace/internal/wallet"
)

var (
	// ErrOwnService is returned when a provider tries to buy their own service.
	ErrOwnService = errors.New("cannot pay for your own service")
	// ErrServiceUnavailable is returned for inactive services.
	ErrServiceUnavailable = errors.New("service is not available")
)

// Services resolves the service being paid for.
type Services interface {
	Service(ctx context.Context, id string) (catalog.ServiceSummary, error)
}

// Providers resolves the account owning a provider profile.
type Providers interface {
	UserIDFor(ctx context.Context, providerID string) (string, error)
}

// Wallets resolves the wallet of a user.
type Wallets interface {
	GetByUser(ctx context.Context, userID string) (wallet.Wallet, error)
}

// Service moves money from customers to providers for purchased services.
type Service struct {
	transactions *ledger.Service
	services     Services
	providers    Providers
	wallets      Wallets
	notifier     notification.Notifier
	logger       *slog.Logger
	now          func() time.Time
}

// NewService constructs a payment service. notifier may be nil.
func NewService(transactions *ledger.Service, services Services, providers Providers, wallets Wallets,
	notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		transactions: transactions,
		services:     services,
		providers:    providers,
		wallets:      wallets,
		notifier:     notifier,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Result describes the two postings of a service payment.
type Result struct {
	Reference string
	Charge    ledger.Transaction
	Earning   ledger.Transaction
	PaidAt    time.Time
}

// PayForService charges the customer's wallet by the service price and credits
// the provider's wallet with the same amount in one ledger posting. An empty
// reference is replaced with a generated one.
func (s *Service) PayForService(ctx context.Context, customerID, serviceID, reference string) (Result, error) {
	svc, err := s.services.Service(ctx, serviceID)
	if err != nil {
		return Result{}, err
	}
	if !svc.IsActive {
		return Result{}, ErrServiceUnavailable
	}
	providerUserID, err := s.providers.UserIDFor(ctx, svc.ProviderID)
	if err != nil {
		return Result{}, err
	}
	if providerUserID == customerID {
		return Result{}, ErrOwnService
	}
	if reference == "" {
		reference = uuid.NewString()
	}

	from, err := s.wallets.GetByUser(ctx, customerID)
	if err != nil {
		return Result{}, fmt.Errorf("customer wallet: %w", err)
	}
	to, err := s.wallets.GetByUser(ctx, providerUserID)
	if err != nil {
		return Result{}, fmt.Errorf("provider wallet: %w", err)
	}

	posted, err := s.transactions.Post(ctx,
		ledger.Transaction{
			UserID:      customerID,
			WalletID:    from.ID,
			Amount:      svc.Price,
			Description: fmt.Sprintf("Payment for %q (%s)", svc.Title, reference),
			Type:        ledger.TypeCharge,
			PaymentType: ledger.PaymentConnect,
			ServiceID:   svc.ID,
		},
		ledger.Transaction{
			UserID:      providerUserID,
			WalletID:    to.ID,
			Amount:      svc.Price,
			Description: fmt.Sprintf("Earning for %q (%s)", svc.Title, reference),
			Type:        ledger.TypeDeposit,
			PaymentType: ledger.PaymentConnect,
			ServiceID:   svc.ID,
		},
	)
	if err != nil {
		return Result{}, err
	}

	res := Result{Reference: reference, Charge: posted[0], Earning: posted[1], PaidAt: s.now()}
	s.logger.InfoContext(ctx, "service paid",
		"service_id", svc.ID, "customer_id", customerID, "provider_user_id", providerUserID,
		"amount", svc.Price.StringFixed(2), "reference", reference)

	if s.notifier != nil {
		err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindServicePaid,
			Destination: providerUserID,
			Body:        fmt.Sprintf("You earned %s for %q", svc.Price.StringFixed(2), svc.Title),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "notification failed", "reference", reference, "error", err)
		}
	}
	return res, nil
}
