package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/taskhub/marketplace/internal/config"
	"github.com/taskhub/marketplace/internal/routes"
	"github.com/taskhub/marketplace/internal/validation"
	"github.com/taskhub/marketplace/internal/wallet"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	services routes.Services
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// stripe may be nil, which disables Connect balance sync.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, stripe wallet.BalanceFetcher, logger *slog.Logger) (*Server, error) {
	app := NewApp(cfg, logger)
	services, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Stripe: stripe, Logger: logger})
	if err != nil {
		return nil, err
	}
	return &Server{app: app, cfg: cfg, services: services}, nil
}

// Services returns the application services wired into the routes.
func (s *Server) Services() routes.Services {
	return s.services
}

// NewApp builds the Fiber application with the shared error rendering.
func NewApp(cfg config.Config, logger *slog.Logger) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: ErrorHandler(logger),
	})
}

// ErrorHandler renders errors as {"error": message}. Validation failures get a
// 400 with per-field details; errors that are not *fiber.Error become a 500
// without leaking their message.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var verr *validation.Errors
		if errors.As(err, &verr) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid request data",
				"details": verr.Details,
			})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		if logger != nil {
			logger.ErrorContext(c.UserContext(), "unhandled error",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": http.StatusText(http.StatusInternalServerError)})
	}
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
