package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/taskhub/marketplace/internal/validation"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Response is the JSON shape of a wallet.
type Response struct {
	ID                              string          `json:"id"`
	User                            string          `json:"user"`
	Description                     string          `json:"description"`
	StripeAccountID                 string          `json:"stripe_account_id"`
	StripeAccountType               string          `json:"stripe_account_type"`
	StripeAccountCountry            string          `json:"stripe_account_country"`
	StripeAccountEmail              string          `json:"stripe_account_email"`
	StripeIsActive                  bool            `json:"stripe_is_active"`
	StripeConnected                 bool            `json:"is_stripe_connected"`
	TotalAmounts                    decimal.Decimal `json:"total_amounts"`
	TotalDeposits                   decimal.Decimal `json:"total_deposits"`
	TotalEarnings                   decimal.Decimal `json:"total_earnings"`
	TotalWithdrawals                decimal.Decimal `json:"total_withdrawals"`
	BalanceAvailable                decimal.Decimal `json:"balance_available"`
	BalancePending                  decimal.Decimal `json:"balance_pending"`
	OutstandingCharges              decimal.Decimal `json:"outstanding_charges"`
	ConnectAvailableBalance         decimal.Decimal `json:"connect_available_balance"`
	ConnectAvailableBalanceCurrency string          `json:"connect_available_balance_currency"`
	ConnectPendingBalance           decimal.Decimal `json:"connect_pending_balance"`
	ConnectPendingBalanceCurrency   string          `json:"connect_pending_balance_currency"`
	CreatedAt                       time.Time       `json:"created_at"`
	UpdatedAt                       time.Time       `json:"updated_at"`
}

// NewResponse renders a wallet.
func NewResponse(w Wallet) Response {
	return Response{
		ID:                              w.ID,
		User:                            w.UserID,
		Description:                     w.Description,
		StripeAccountID:                 w.Stripe.AccountID,
		StripeAccountType:               w.Stripe.AccountType,
		StripeAccountCountry:            w.Stripe.Country,
		StripeAccountEmail:              w.Stripe.Email,
		StripeIsActive:                  w.IsStripeAccountActive(),
		StripeConnected:                 w.IsStripeConnected(),
		TotalAmounts:                    w.TotalAmounts,
		TotalDeposits:                   w.TotalDeposits,
		TotalEarnings:                   w.TotalEarnings,
		TotalWithdrawals:                w.TotalWithdrawals,
		BalanceAvailable:                w.AvailableBalance(),
		BalancePending:                  w.PendingBalance(),
		OutstandingCharges:              w.OutstandingCharges,
		ConnectAvailableBalance:         w.ConnectBalance(),
		ConnectAvailableBalanceCurrency: w.Connect.AvailableCurrency,
		ConnectPendingBalance:           w.Connect.Pending,
		ConnectPendingBalanceCurrency:   w.Connect.PendingCurrency,
		CreatedAt:                       w.CreatedAt,
		UpdatedAt:                       w.UpdatedAt,
	}
}

// Me returns the authenticated user's wallet.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	w, err := h.service.GetByUser(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(NewResponse(w))
}

// Get returns a wallet by id; only its owner or staff may read it.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	staff, _ := c.Locals("is_staff").(bool)
	w, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	if w.UserID != uid && !staff {
		return fiber.NewError(http.StatusNotFound, ErrNotFound.Error())
	}
	return c.JSON(NewResponse(w))
}

// List pages through all wallets.
func (h *Handler) List(c *fiber.Ctx) error {
	wallets, err := h.service.List(c.UserContext(), c.QueryInt("limit", defaultListLimit), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	out := make([]Response, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, NewResponse(w))
	}
	return c.JSON(fiber.Map{"results": out, "count": len(out)})
}

type connectRequest struct {
	AccountID   string         `json:"stripe_account_id" validate:"required,startswith=acct_"`
	AccountType string         `json:"stripe_account_type" validate:"omitempty,oneof=standard express custom"`
	Country     string         `json:"stripe_account_country" validate:"omitempty,len=2"`
	Email       string         `json:"stripe_account_email" validate:"omitempty,email"`
	Description map[string]any `json:"stripe_description"`
	Active      bool           `json:"stripe_is_active"`
}

// ConnectStripe links a Stripe Connect account to the caller's wallet.
func (h *Handler) ConnectStripe(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req connectRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	w, err := h.service.GetByUser(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	w, err = h.service.ConnectStripe(c.UserContext(), w.ID, StripeAccount{
		AccountID:   req.AccountID,
		AccountType: req.AccountType,
		Country:     req.Country,
		Email:       req.Email,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(NewResponse(w))
}

// SyncStripe refreshes the connect balance of the caller's wallet.
func (h *Handler) SyncStripe(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	w, err := h.service.GetByUser(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	w, err = h.service.SyncConnectBalance(c.UserContext(), w.ID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(NewResponse(w))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrStripeNotConnected):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrStripeDisabled):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrWalletExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
