package payments

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/catalog"
	"github.com/taskhub/marketplace/internal/ledger"
	"github.com/taskhub/marketplace/internal/validation"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type payRequest struct {
	Reference string `json:"reference" validate:"omitempty,max=64"`
}

// Response is the JSON shape of a service payment.
type Response struct {
	Reference string          `json:"reference"`
	Charge    ledger.Response `json:"charge"`
	Earning   ledger.Response `json:"earning"`
	PaidAt    time.Time       `json:"paid_at"`
}

// PayForService charges the caller for the service in the path.
func (h *Handler) PayForService(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req payRequest
	if len(c.Body()) > 0 {
		if err := validation.Bind(c, &req); err != nil {
			return err
		}
	}
	if req.Reference == "" {
		req.Reference = c.Get("Idempotency-Key")
	}

	res, err := h.service.PayForService(c.UserContext(), uid, c.Params("id"), req.Reference)
	if err != nil {
		switch {
		case errors.Is(err, ErrOwnService):
			return fiber.NewError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrServiceUnavailable):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, catalog.ErrServiceNotFound):
			return catalog.MapError(err)
		default:
			return ledger.MapError(err)
		}
	}

	return c.Status(http.StatusCreated).JSON(Response{
		Reference: res.Reference,
		Charge:    ledger.NewResponse(res.Charge),
		Earning:   ledger.NewResponse(res.Earning),
		PaidAt:    res.PaidAt,
	})
}
