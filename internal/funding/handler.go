package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/taskhub/marketplace/internal/banking"
	"github.com/taskhub/marketplace/internal/ledger"
	"github.com/taskhub/marketplace/internal/validation"
)

// Handler exposes HTTP endpoints for card deposits and bank payouts.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type cardDepositRequest struct {
	CardNumber string          `json:"card_number" validate:"required"`
	Expiry     string          `json:"expiry" validate:"omitempty,max=7"`
	CVV        string          `json:"cvv" validate:"omitempty,numeric,min=3,max=4"`
	Amount     decimal.Decimal `json:"amount"`
}

type payoutRequest struct {
	BankAccount string          `json:"bank_account" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount"`
}

// Response represents the API response for funding actions.
type Response struct {
	Transaction      ledger.Response `json:"transaction"`
	GatewayReference string          `json:"gateway_reference"`
}

// CardDeposit tops up the caller's wallet from a card.
func (h *Handler) CardDeposit(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req cardDepositRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	result, err := h.service.CardDeposit(c.UserContext(), CardDepositInput{
		UserID:     uid,
		Amount:     req.Amount,
		CardNumber: req.CardNumber,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

// BankPayout withdraws from the caller's wallet to one of their bank accounts.
func (h *Handler) BankPayout(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req payoutRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	result, err := h.service.BankPayout(c.UserContext(), PayoutInput{
		UserID:        uid,
		BankAccountID: req.BankAccount,
		Amount:        req.Amount,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(result))
}

func toResponse(result Result) Response {
	return Response{Transaction: ledger.NewResponse(result.Transaction), GatewayReference: result.Reference}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCard), errors.Is(err, ErrCardExpired):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDeclined):
		return fiber.NewError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, banking.ErrAccountNotFound), errors.Is(err, banking.ErrAccountInactive):
		return banking.MapError(err)
	default:
		return ledger.MapError(err)
	}
}
