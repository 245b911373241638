package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/provider"
)

// RegisterProviderRoutes wires service provider endpoints. The /me routes are
// registered ahead of /:id so they are not shadowed.
func RegisterProviderRoutes(r fiber.Router, h *provider.Handler, g guards) {
	group := r.Group("/providers")
	group.Get("", h.List)
	group.Post("", g.auth, h.Create)

	group.Get("/me", g.auth, h.Me)
	group.Patch("/me", g.auth, h.Update)
	group.Put("/me/social-media", g.auth, h.SetSocialMedia)
	group.Post("/me/interests", g.auth, h.AddInterest)
	group.Post("/me/certifications", g.auth, h.AddCertification)
	group.Post("/me/languages", g.auth, h.AddLanguage)
	group.Delete("/me/languages/:id", g.auth, h.RemoveLanguage)

	group.Get("/:id", h.Get)
	group.Patch("/:id/status", g.auth, g.staff, h.SetStatus)
}
