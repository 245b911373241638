package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/funding"
	"github.com/taskhub/marketplace/internal/wallet"
)

// RegisterWalletRoutes wires wallet, Stripe Connect and funding endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, fund *funding.Handler, g guards) {
	group := r.Group("/wallet", g.auth)
	group.Get("", h.Me)
	group.Get("/list", g.staff, h.List)
	group.Post("/stripe/connect", h.ConnectStripe)
	group.Post("/stripe/sync", h.SyncStripe)
	group.Post("/deposit/card", g.idempotent, fund.CardDeposit)
	group.Post("/withdraw/bank", g.idempotent, fund.BankPayout)

	r.Get("/user-wallet/:id", g.auth, h.Get)
}
