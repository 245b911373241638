package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/banking"
)

// RegisterBankingRoutes wires bank and bank account endpoints.
func RegisterBankingRoutes(r fiber.Router, h *banking.Handler, g guards) {
	r.Get("/banks", g.auth, h.ListBanks)
	r.Post("/banks", g.auth, g.staff, h.CreateBank)

	accounts := r.Group("/bank-accounts", g.auth)
	accounts.Get("", h.ListAccounts)
	accounts.Post("", h.CreateAccount)
	accounts.Get("/:id", h.GetAccount)
	accounts.Delete("/:id", h.Deactivate)
}
