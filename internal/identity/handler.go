package identity

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/validation"
)

// Handler exposes profile endpoints for the authenticated user.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ProfileResponse is the public representation of a user.
type ProfileResponse struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	ProfileImage string      `json:"profile_image"`
	Bio          string      `json:"bio"`
	Images       []UserImage `json:"images"`
	DateJoined   time.Time   `json:"date_joined"`
	LastLogin    *time.Time  `json:"last_login"`
}

// NewProfileResponse renders a user and its images.
func NewProfileResponse(user User, images []UserImage) ProfileResponse {
	if images == nil {
		images = []UserImage{}
	}
	return ProfileResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		ProfileImage: user.ProfileImage,
		Bio:          user.Bio,
		Images:       images,
		DateJoined:   user.DateJoined,
		LastLogin:    user.LastLogin,
	}
}

type updateRequest struct {
	FirstName    *string `json:"first_name" validate:"omitempty,max=150"`
	LastName     *string `json:"last_name" validate:"omitempty,max=150"`
	ProfileImage *string `json:"profile_image" validate:"omitempty,url"`
	Bio          *string `json:"bio" validate:"omitempty,max=2000"`
}

type addressRequest struct {
	Address string `json:"address" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=100"`
	Region  string `json:"region" validate:"max=100"`
	Country string `json:"country" validate:"max=100"`
	ZipCode string `json:"zip_code" validate:"max=20"`
}

type imageRequest struct {
	Image string `json:"image" validate:"required,url"`
}

// Profile returns the authenticated user's profile.
func (h *Handler) Profile(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	user, images, err := h.service.Profile(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(NewProfileResponse(user, images))
}

// UpdateProfile changes first/last name, profile image and bio.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req updateRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	if _, err := h.service.UpdateProfile(c.UserContext(), uid, ProfileUpdate{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		ProfileImage: req.ProfileImage,
		Bio:          req.Bio,
	}); err != nil {
		return mapError(err)
	}
	return h.Profile(c)
}

// SetAddress replaces the authenticated user's address.
func (h *Handler) SetAddress(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req addressRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	addr, err := h.service.SetAddress(c.UserContext(), uid, Address{
		Address: req.Address,
		City:    req.City,
		Region:  req.Region,
		Country: req.Country,
		ZipCode: req.ZipCode,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(addr)
}

// AddImage appends an image to the authenticated user's gallery.
func (h *Handler) AddImage(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req imageRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	img, err := h.service.AddImage(c.UserContext(), uid, req.Image)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(img)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUserExists), errors.Is(err, ErrWeakPassword):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	default:
		return err
	}
}
