package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/catalog"
	"github.com/taskhub/marketplace/internal/payments"
)

// RegisterCatalogRoutes wires browsing, publishing, reviews and service
// payment endpoints, plus the staff-only lookup table writes.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler, pay *payments.Handler, g guards) {
	r.Get("/home", h.Home)
	r.Get("/helpers/category-region-province", h.Helpers)

	r.Get("/categories", h.ListCategories)
	r.Post("/categories", g.auth, g.staff, h.CreateCategory)

	r.Get("/services", h.ListServices)
	r.Post("/services", g.auth, h.CreateService)
	r.Get("/services/:id", h.GetService)
	r.Get("/services/:id/reviews", h.ListReviews)
	r.Post("/services/:id/reviews", g.auth, h.PostReview)
	r.Post("/services/:id/pay", g.auth, g.idempotent, pay.PayForService)

	r.Get("/languages", h.ListLanguages)
	r.Get("/languages/:id", h.GetLanguage)
	r.Post("/languages", g.auth, g.staff, h.CreateLanguage)

	geo := r.Group("/geo")
	geo.Get("/countries", h.ListCountries)
	geo.Post("/countries", g.auth, g.staff, h.CreateCountry)
	geo.Post("/regions", g.auth, g.staff, h.CreateRegion)
	geo.Post("/sub-regions", g.auth, g.staff, h.CreateSubRegion)
}
