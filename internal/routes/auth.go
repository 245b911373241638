package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/auth"
)

// RegisterAuthRoutes wires registration and token endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, g guards) {
	group := r.Group("/auth")
	group.Post("/register", h.Register)
	group.Post("/login", g.loginLimit, h.Login)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", g.auth, h.Logout)
}
