package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/taskhub/marketplace/internal/validation"
)

// Handler exposes the catalog endpoints.
type Handler struct {
	catalog *Catalog
}

// NewHandler constructs a catalog handler.
func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"omitempty,max=120"`
	Description string `json:"description"`
	Icon        string `json:"icon" validate:"omitempty,max=255"`
}

type serviceRequest struct {
	Category    string          `json:"category" validate:"required,uuid"`
	Title       string          `json:"title" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

type countryRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Code2 string `json:"code2" validate:"omitempty,len=2"`
}

type regionRequest struct {
	Country int64  `json:"country" validate:"required,gt=0"`
	Name    string `json:"name" validate:"required,max=100"`
}

type subRegionRequest struct {
	Region int64  `json:"region" validate:"required,gt=0"`
	Name   string `json:"name" validate:"required,max=100"`
}

type languageRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Code string `json:"code" validate:"required,max=10"`
}

// Home returns the landing feed.
func (h *Handler) Home(c *fiber.Ctx) error {
	home, err := h.catalog.Home(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(home)
}

// Helpers returns the category, sub-region and province lookups.
func (h *Handler) Helpers(c *fiber.Ctx) error {
	helpers, err := h.catalog.Helpers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(helpers)
}

// ListCategories returns active categories.
func (h *Handler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(categories)
}

// CreateCategory adds a category.
func (h *Handler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	cat, err := h.catalog.CreateCategory(c.UserContext(), CategoryInput(req))
	if err != nil {
		return MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(cat)
}

// ListServices returns active services; ?category= filters.
func (h *Handler) ListServices(c *fiber.Ctx) error {
	services, err := h.catalog.Services(c.UserContext(), ServiceFilter{
		CategoryID: c.Query("category"),
		ProviderID: c.Query("provider"),
		Limit:      c.QueryInt("limit", defaultListLimit),
		Offset:     c.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(services)
}

// GetService returns a service with its rating summary.
func (h *Handler) GetService(c *fiber.Ctx) error {
	svc, err := h.catalog.Service(c.UserContext(), c.Params("id"))
	if err != nil {
		return MapError(err)
	}
	return c.JSON(svc)
}

// CreateService publishes a service for the caller's provider profile.
func (h *Handler) CreateService(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req serviceRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	svc, err := h.catalog.CreateService(c.UserContext(), uid, ServiceInput{
		CategoryID:  req.Category,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		return MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(svc)
}

// ListReviews returns the active reviews of a service.
func (h *Handler) ListReviews(c *fiber.Ctx) error {
	reviews, err := h.catalog.Reviews(c.UserContext(), c.Params("id"))
	if err != nil {
		return MapError(err)
	}
	return c.JSON(reviews)
}

// PostReview rates a service.
func (h *Handler) PostReview(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req reviewRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	rv, err := h.catalog.PostReview(c.UserContext(), uid, c.Params("id"), req.Rating, req.Comment)
	if err != nil {
		return MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(rv)
}

// ListCountries returns all countries.
func (h *Handler) ListCountries(c *fiber.Ctx) error {
	countries, err := h.catalog.Countries(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(countries)
}

// CreateCountry adds a country.
func (h *Handler) CreateCountry(c *fiber.Ctx) error {
	var req countryRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	country, err := h.catalog.CreateCountry(c.UserContext(), req.Name, req.Code2)
	if err != nil {
		return MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(country)
}

// CreateRegion adds a province.
func (h *Handler) CreateRegion(c *fiber.Ctx) error {
	var req regionRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	region, err := h.catalog.CreateRegion(c.UserContext(), req.Country, req.Name)
	if err != nil {
		return MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(region)
}

// CreateSubRegion adds a sub-region.
func (h *Handler) CreateSubRegion(c *fiber.Ctx) error {
	var req subRegionRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	sub, err := h.catalog.CreateSubRegion(c.UserContext(), req.Region, req.Name)
	if err != nil {
		return MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(sub)
}

// ListLanguages returns all languages.
func (h *Handler) ListLanguages(c *fiber.Ctx) error {
	languages, err := h.catalog.Languages(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(languages)
}

// GetLanguage returns a language.
func (h *Handler) GetLanguage(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusNotFound, ErrLanguageNotFound.Error())
	}
	l, err := h.catalog.Language(c.UserContext(), id)
	if err != nil {
		return MapError(err)
	}
	return c.JSON(l)
}

// CreateLanguage adds a language.
func (h *Handler) CreateLanguage(c *fiber.Ctx) error {
	var req languageRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	l, err := h.catalog.CreateLanguage(c.UserContext(), req.Name, req.Code)
	if err != nil {
		return MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(l)
}

// MapError translates catalog errors into HTTP errors.
func MapError(err error) error {
	switch {
	case errors.Is(err, ErrCategoryNotFound), errors.Is(err, ErrServiceNotFound),
		errors.Is(err, ErrCountryNotFound), errors.Is(err, ErrRegionNotFound),
		errors.Is(err, ErrLanguageNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrCategoryExists), errors.Is(err, ErrReviewExists), errors.Is(err, ErrLanguageExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotProvider):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidRating), errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrCategoryInactive):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
