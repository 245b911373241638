package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/identity"
	"github.com/taskhub/marketplace/internal/validation"
	"github.com/taskhub/marketplace/internal/wallet"
)

// Wallets provisions a wallet on registration and resolves it on login.
type Wallets interface {
	Create(ctx context.Context, userID string) (wallet.Wallet, error)
	GetByUser(ctx context.Context, userID string) (wallet.Wallet, error)
}

// Handler exposes auth endpoints for login/refresh/logout.
type Handler struct {
	ids     *identity.Service
	svc     *Service
	wallets Wallets
	logger  *slog.Logger
}

// NewHandler builds the auth handler. wallets may be nil.
func NewHandler(ids *identity.Service, svc *Service, wallets Wallets, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ids: ids, svc: svc, wallets: wallets, logger: logger}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	WalletID string `json:"wallet_id,omitempty"`
}

// Register creates an account and provisions its wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	user, err := h.ids.Register(c.UserContext(), identity.RegisterInput(req))
	switch {
	case errors.Is(err, identity.ErrUserExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrWeakPassword):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}

	// The wallet is provisioned on first use when this fails.
	var walletID string
	if h.wallets != nil {
		w, err := h.wallets.Create(c.UserContext(), user.ID)
		if err != nil {
			h.logger.WarnContext(c.UserContext(), "wallet provisioning deferred",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
		walletID = w.ID
	}
	h.logger.InfoContext(c.UserContext(), "user registered",
		slog.String("user_id", user.ID),
		slog.String("wallet_id", walletID),
	)
	return c.Status(http.StatusCreated).JSON(registerResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		WalletID: walletID,
	})
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
	IsStaff      bool   `json:"is_staff"`
	WalletID     string `json:"wallet_id,omitempty"`
}

// Login validates credentials and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	user, err := h.ids.Authenticate(c.UserContext(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return err
	}
	pair, err := h.svc.Login(user)
	if err != nil {
		return err
	}
	var wid string
	if h.wallets != nil {
		if w, err := h.wallets.GetByUser(c.UserContext(), user.ID); err == nil {
			wid = w.ID
		}
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		UserID:       user.ID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		TokenVersion: user.TokenVersion,
		IsStaff:      user.IsStaff,
		WalletID:     wid,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	token, exp, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"access_token": token, "expires_in": exp})
}

// Logout invalidates the caller's existing tokens by bumping the token version.
func (h *Handler) Logout(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.svc.Logout(c.UserContext(), uid); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}
