package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/taskhub/marketplace/internal/validation"
	"github.com/taskhub/marketplace/internal/wallet"
)

// Handler exposes transaction endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transaction handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Response is the JSON shape of a transaction.
type Response struct {
	ID          string          `json:"id"`
	User        string          `json:"user,omitempty"`
	Wallet      string          `json:"wallet,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Description string          `json:"description"`
	Type        Type            `json:"transaction_type"`
	Status      Status          `json:"status"`
	PaymentType PaymentType     `json:"payment_type"`
	Service     string          `json:"service,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewResponse renders a transaction.
func NewResponse(tx Transaction) Response {
	return Response{
		ID:          tx.ID,
		User:        tx.UserID,
		Wallet:      tx.WalletID,
		Amount:      tx.Amount,
		Fee:         tx.Fee,
		Description: tx.Description,
		Type:        tx.Type,
		Status:      tx.Status,
		PaymentType: tx.PaymentType,
		Service:     tx.ServiceID,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

type createRequest struct {
	User        string          `json:"user" validate:"omitempty,uuid"`
	Wallet      string          `json:"wallet" validate:"omitempty,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Description string          `json:"description" validate:"max=255"`
	Type        string          `json:"transaction_type" validate:"required,oneof=deposit withdrawal charge refund"`
	Status      string          `json:"status" validate:"omitempty,oneof=pending processing accepted"`
	PaymentType string          `json:"payment_type" validate:"omitempty,oneof=connect paypal bank_account card"`
	Service     string          `json:"service" validate:"omitempty,uuid"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing accepted rejected completed cancelled"`
}

// Create records a new transaction. Staff may record on behalf of another user.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	staff, _ := c.Locals("is_staff").(bool)
	var req createRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	owner := uid
	if staff && req.User != "" {
		owner = req.User
	}
	tx, err := h.service.Create(c.UserContext(), Transaction{
		UserID:      owner,
		WalletID:    req.Wallet,
		Amount:      req.Amount,
		Fee:         req.Fee,
		Description: req.Description,
		Type:        Type(req.Type),
		Status:      Status(req.Status),
		PaymentType: PaymentType(req.PaymentType),
		ServiceID:   req.Service,
	})
	if err != nil {
		return MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(NewResponse(tx))
}

// Get returns one transaction.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	staff, _ := c.Locals("is_staff").(bool)
	tx, err := h.service.Get(c.UserContext(), c.Params("id"), uid, staff)
	if err != nil {
		return MapError(err)
	}
	return c.JSON(NewResponse(tx))
}

// List returns the caller's transactions; staff see all of them.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	staff, _ := c.Locals("is_staff").(bool)
	filter := Filter{
		UserID:   c.Query("user"),
		WalletID: c.Query("wallet"),
		Type:     Type(c.Query("transaction_type")),
		Status:   Status(c.Query("status")),
		Limit:    c.QueryInt("limit", defaultListLimit),
		Offset:   c.QueryInt("offset", 0),
	}
	txs, err := h.service.List(c.UserContext(), filter, uid, staff)
	if err != nil {
		return MapError(err)
	}
	out := make([]Response, 0, len(txs))
	for _, tx := range txs {
		out = append(out, NewResponse(tx))
	}
	return c.JSON(fiber.Map{"results": out, "count": len(out)})
}

// SetStatus changes the status of a transaction.
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	tx, err := h.service.SetStatus(c.UserContext(), c.Params("id"), Status(req.Status))
	if err != nil {
		return MapError(err)
	}
	return c.JSON(NewResponse(tx))
}

// Process completes a transaction.
func (h *Handler) Process(c *fiber.Ctx) error {
	tx, err := h.service.Process(c.UserContext(), c.Params("id"))
	if err != nil {
		return MapError(err)
	}
	return c.JSON(NewResponse(tx))
}

// MapError converts ledger errors into HTTP errors.
func MapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, wallet.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrCompletedImmutable),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrDuplicateTransaction):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrWalletMismatch):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidFee),
		errors.Is(err, ErrWalletRequired),
		errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidPaymentType):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
