package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/identity"
)

// RegisterIdentityRoutes wires the caller's profile endpoints.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, g guards) {
	me := r.Group("/me", g.auth)
	me.Get("", h.Profile)
	me.Patch("", h.UpdateProfile)
	me.Put("/address", h.SetAddress)
	me.Post("/images", h.AddImage)
}
