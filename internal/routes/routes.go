package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/taskhub/marketplace/internal/auth"
	"github.com/taskhub/marketplace/internal/banking"
	"github.com/taskhub/marketplace/internal/catalog"
	"github.com/taskhub/marketplace/internal/config"
	"github.com/taskhub/marketplace/internal/funding"
	"github.com/taskhub/marketplace/internal/identity"
	"github.com/taskhub/marketplace/internal/ledger"
	"github.com/taskhub/marketplace/internal/metrics"
	"github.com/taskhub/marketplace/internal/middleware"
	"github.com/taskhub/marketplace/internal/notification"
	"github.com/taskhub/marketplace/internal/payments"
	"github.com/taskhub/marketplace/internal/provider"
	"github.com/taskhub/marketplace/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in development, in which case in-memory stores are used and the
// Redis-backed features are disabled.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Stripe wallet.BalanceFetcher
	Logger *slog.Logger
}

type stores struct {
	users     identity.Repository
	wallets   wallet.Repository
	ledger    ledger.Ledger
	banks     banking.Repository
	providers provider.Repository
	catalog   catalog.Repository
}

func newStores(db *pgxpool.Pool) stores {
	if db == nil {
		walletRepo := wallet.NewMemoryRepository()
		return stores{
			users:     identity.NewMemoryRepository(),
			wallets:   walletRepo,
			ledger:    ledger.NewInMemory(walletRepo),
			banks:     banking.NewMemoryRepository(),
			providers: provider.NewMemoryRepository(),
			catalog:   catalog.NewMemoryRepository(),
		}
	}
	return stores{
		users:     identity.NewPostgresRepository(db),
		wallets:   wallet.NewPostgresRepository(db),
		ledger:    ledger.NewPostgresLedger(db),
		banks:     banking.NewPostgresRepository(db),
		providers: provider.NewPostgresRepository(db),
		catalog:   catalog.NewPostgresRepository(db),
	}
}

// handlers groups every HTTP handler of the API.
type handlers struct {
	auth         *auth.Handler
	identity     *identity.Handler
	catalog      *catalog.Handler
	provider     *provider.Handler
	wallet       *wallet.Handler
	banking      *banking.Handler
	transactions *ledger.Handler
	funding      *funding.Handler
	payments     *payments.Handler
}

// Services exposes the application services built by Setup. cmd/api uses it
// for start-up tasks such as bootstrapping the staff account.
type Services struct {
	Identity *identity.Service
	Auth     *auth.Service
	Wallets  *wallet.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (Services, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Services{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Services{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Scrapes bypass the request middleware.
	collector := metrics.NewCollector()
	if err := RegisterMetricsRoute(app, collector); err != nil {
		return Services{}, err
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(logger, collector))

	RegisterHealthRoutes(app, d)
	app.Static("/media", d.Cfg.MediaRoot)
	app.Static("/static", d.Cfg.StaticRoot)

	st := newStores(d.DB)

	notifiers := notification.Multi{notification.NewLoggerNotifier(logger)}
	if d.Cache != nil {
		notifiers = append(notifiers, notification.NewRedisNotifier(d.Cache, collector))
	}

	identitySvc := identity.NewService(st.users)
	authSvc := auth.NewService(d.Cfg, st.users)
	walletSvc := wallet.NewService(st.wallets, d.Stripe)
	bankingSvc := banking.NewService(st.banks)
	transactionSvc := ledger.NewService(st.ledger, walletSvc, notifiers, collector, logger)

	helpersCache := catalog.NewViewCache[catalog.Helpers]("helpers", d.Cache, d.Cfg.CatalogCacheTTL, logger, collector)
	providerSvc := provider.NewService(st.providers, languageCatalog{st.catalog}, identitySvc, notifiers)
	catalogSvc := catalog.New(st.catalog, providerResolver{providerSvc}, providerSvc, helpersCache, logger)

	fundingSvc, err := funding.NewService(transactionSvc, walletSvc, bankingSvc, funding.StaticGateway{})
	if err != nil {
		return Services{}, err
	}
	paymentSvc := payments.NewService(transactionSvc, catalogSvc, providerSvc, walletSvc, notifiers, logger)

	h := handlers{
		auth:         auth.NewHandler(identitySvc, authSvc, walletSvc, logger),
		identity:     identity.NewHandler(identitySvc),
		catalog:      catalog.NewHandler(catalogSvc),
		provider:     provider.NewHandler(providerSvc),
		wallet:       wallet.NewHandler(walletSvc),
		banking:      banking.NewHandler(bankingSvc),
		transactions: ledger.NewHandler(transactionSvc),
		funding:      funding.NewHandler(fundingSvc),
		payments:     payments.NewHandler(paymentSvc),
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	guard := guards{
		auth:       middleware.JWTAuth(authSvc),
		staff:      middleware.RequireStaff(),
		idempotent: middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, logger),
		loginLimit: middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRate, logger),
	}

	RegisterAuthRoutes(api, h.auth, guard)
	RegisterIdentityRoutes(api, h.identity, guard)
	RegisterCatalogRoutes(api, h.catalog, h.payments, guard)
	RegisterProviderRoutes(api, h.provider, guard)
	RegisterWalletRoutes(api, h.wallet, h.funding, guard)
	RegisterBankingRoutes(api, h.banking, guard)
	RegisterTransactionRoutes(api, h.transactions, guard)

	return Services{Identity: identitySvc, Auth: authSvc, Wallets: walletSvc}, nil
}

// guards are the per-route middlewares shared by the route groups.
type guards struct {
	auth       fiber.Handler
	staff      fiber.Handler
	idempotent fiber.Handler
	loginLimit fiber.Handler
}
