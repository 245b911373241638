package provider

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/identity"
	"github.com/taskhub/marketplace/internal/validation"
)

// Handler exposes service provider endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a provider handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Response is the JSON shape of a provider.
type Response struct {
	ID             string             `json:"id"`
	User           string             `json:"user"`
	CompanyName    string             `json:"company_name"`
	PhoneNumber    string             `json:"phone_number"`
	Website        string             `json:"website"`
	Rating         float64            `json:"rating"`
	TotalReviews   int                `json:"total_reviews"`
	Verified       bool               `json:"verified"`
	Status         Status             `json:"status"`
	SocialMedia    SocialMedia        `json:"social_media"`
	Interests      []Interest         `json:"interests"`
	Certifications []Certification    `json:"certifications"`
	Languages      []ProviderLanguage `json:"languages"`
	CreatedAt      time.Time          `json:"created_at"`
}

// DetailResponse adds the user profile and address.
type DetailResponse struct {
	Response
	UserDetail *identity.ProfileResponse `json:"user_detail,omitempty"`
	Address    *identity.Address         `json:"address"`
}

// NewResponse renders a provider.
func NewResponse(p ServiceProvider) Response {
	r := Response{
		ID:             p.ID,
		User:           p.UserID,
		CompanyName:    p.CompanyName,
		PhoneNumber:    p.PhoneNumber,
		Website:        p.Website,
		Rating:         p.Rating,
		TotalReviews:   p.TotalReviews,
		Verified:       p.Verified,
		Status:         p.Status,
		SocialMedia:    p.SocialMedia,
		Interests:      p.Interests,
		Certifications: p.Certifications,
		Languages:      p.Languages,
		CreatedAt:      p.CreatedAt,
	}
	if r.Interests == nil {
		r.Interests = []Interest{}
	}
	if r.Certifications == nil {
		r.Certifications = []Certification{}
	}
	if r.Languages == nil {
		r.Languages = []ProviderLanguage{}
	}
	return r
}

type createRequest struct {
	CompanyName string `json:"company_name" validate:"max=255"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=30"`
	Website     string `json:"website" validate:"omitempty,url"`
}

type updateRequest struct {
	CompanyName *string `json:"company_name" validate:"omitempty,max=255"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=30"`
	Website     *string `json:"website" validate:"omitempty,url"`
}

type socialRequest struct {
	Facebook  string `json:"facebook" validate:"omitempty,url"`
	Instagram string `json:"instagram" validate:"omitempty,url"`
	Twitter   string `json:"twitter" validate:"omitempty,url"`
	LinkedIn  string `json:"linkedin" validate:"omitempty,url"`
}

type interestRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type certificationRequest struct {
	CertificateFile string `json:"certificate_file" validate:"required,max=255"`
}

type languageRequest struct {
	Language int64  `json:"language" validate:"required,gt=0"`
	Fluency  string `json:"fluency" validate:"required,oneof=basic conversational fluent native"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active suspended"`
}

// List returns providers; ?status= and ?verified= filter.
func (h *Handler) List(c *fiber.Ctx) error {
	filter := Filter{
		Status: Status(c.Query("status")),
		Limit:  c.QueryInt("limit", defaultListLimit),
		Offset: c.QueryInt("offset", 0),
	}
	if v := c.Query("verified"); v != "" {
		verified := c.QueryBool("verified")
		filter.Verified = &verified
	}
	providers, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	out := make([]Response, 0, len(providers))
	for _, p := range providers {
		out = append(out, NewResponse(p))
	}
	return c.JSON(out)
}

// Get returns a provider with its user profile and address.
func (h *Handler) Get(c *fiber.Ctx) error {
	detail, err := h.service.Detail(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	resp := DetailResponse{Response: NewResponse(detail.Provider), Address: detail.Address}
	if detail.User.ID != "" {
		profile := identity.NewProfileResponse(detail.User, nil)
		resp.UserDetail = &profile
	}
	return c.JSON(resp)
}

// Me returns the caller's provider profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	p, err := h.service.GetByUser(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(NewResponse(p))
}

// Create registers the caller as a provider.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req createRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.service.Create(c.UserContext(), uid, CreateInput(req))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(NewResponse(p))
}

// Update edits the caller's provider profile.
func (h *Handler) Update(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req updateRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.service.Update(c.UserContext(), uid, ProfileUpdate(req))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(NewResponse(p))
}

// SetSocialMedia replaces the caller's social links.
func (h *Handler) SetSocialMedia(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req socialRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.service.SetSocialMedia(c.UserContext(), uid, SocialMedia(req))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(NewResponse(p))
}

// AddInterest adds an interest to the caller's profile.
func (h *Handler) AddInterest(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req interestRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	interest, err := h.service.AddInterest(c.UserContext(), uid, req.Name)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(interest)
}

// AddCertification attaches a certificate to the caller's profile.
func (h *Handler) AddCertification(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req certificationRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	cert, err := h.service.AddCertification(c.UserContext(), uid, req.CertificateFile)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(cert)
}

// AddLanguage adds a spoken language to the caller's profile.
func (h *Handler) AddLanguage(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req languageRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	lang, err := h.service.AddLanguage(c.UserContext(), uid, req.Language, req.Fluency)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(lang)
}

// RemoveLanguage removes a spoken language from the caller's profile.
func (h *Handler) RemoveLanguage(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.service.RemoveLanguage(c.UserContext(), uid, c.Params("id")); err != nil {
		return mapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// SetStatus changes the moderation status of a provider.
func (h *Handler) SetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	p, err := h.service.SetStatus(c.UserContext(), c.Params("id"), Status(req.Status))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(NewResponse(p))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, identity.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrProviderExists), errors.Is(err, ErrLanguageExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidFluency), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrUnknownLanguage):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
