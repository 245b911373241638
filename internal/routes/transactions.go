package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/ledger"
)

// RegisterTransactionRoutes wires financial transaction endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *ledger.Handler, g guards) {
	group := r.Group("/transactions", g.auth)
	group.Get("", h.List)
	group.Post("", h.Create)
	group.Get("/:id", h.Get)
	group.Patch("/:id/status", g.staff, h.SetStatus)
	group.Post("/:id/process", g.staff, h.Process)
}
