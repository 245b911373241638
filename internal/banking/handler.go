package banking

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/validation"
)

// Handler exposes bank and bank account endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a banking handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type bankResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type accountResponse struct {
	ID                string    `json:"id"`
	User              string    `json:"user"`
	AccountHolderName string    `json:"account_holder_name"`
	AccountNumber     string    `json:"account_number"`
	AccountIBAN       string    `json:"account_iban"`
	AccountType       string    `json:"account_type"`
	AccountCurrency   string    `json:"account_currency"`
	SwiftCode         string    `json:"swift_code"`
	RoutingNumber     string    `json:"routing_number"`
	Bank              string    `json:"bank"`
	BankName          string    `json:"bank_name"`
	Country           *int64    `json:"country"`
	BankCity          string    `json:"bank_city"`
	BankAddress       string    `json:"bank_address"`
	BankPostalCode    string    `json:"bank_postal_code"`
	IsActive          bool      `json:"is_active"`
	Display           string    `json:"display"`
	CreatedAt         time.Time `json:"created_at"`
}

func toBankResponse(b Bank) bankResponse {
	return bankResponse{ID: b.ID, Name: b.Name, IsActive: b.IsActive, CreatedAt: b.CreatedAt}
}

func toAccountResponse(a BankAccount) accountResponse {
	return accountResponse{
		ID:                a.ID,
		User:              a.UserID,
		AccountHolderName: a.AccountHolderName,
		AccountNumber:     a.AccountNumber,
		AccountIBAN:       a.AccountIBAN,
		AccountType:       a.AccountType,
		AccountCurrency:   a.AccountCurrency,
		SwiftCode:         a.SwiftCode,
		RoutingNumber:     a.RoutingNumber,
		Bank:              a.BankID,
		BankName:          a.BankName,
		Country:           a.CountryID,
		BankCity:          a.BankCity,
		BankAddress:       a.BankAddress,
		BankPostalCode:    a.BankPostalCode,
		IsActive:          a.IsActive,
		Display:           a.String(),
		CreatedAt:         a.CreatedAt,
	}
}

type bankRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}

type accountRequest struct {
	AccountHolderName string `json:"account_holder_name" validate:"required,max=150"`
	AccountNumber     string `json:"account_number" validate:"omitempty,max=30"`
	AccountIBAN       string `json:"account_iban" validate:"omitempty,max=34"`
	AccountType       string `json:"account_type" validate:"omitempty,oneof=savings checking business other"`
	AccountCurrency   string `json:"account_currency" validate:"omitempty,iso4217"`
	SwiftCode         string `json:"swift_code" validate:"omitempty,max=20"`
	RoutingNumber     string `json:"routing_number" validate:"omitempty,max=20"`
	Bank              string `json:"bank" validate:"required,uuid"`
	Country           *int64 `json:"country"`
	BankCity          string `json:"bank_city" validate:"omitempty,max=100"`
	BankAddress       string `json:"bank_address" validate:"omitempty,max=255"`
	BankPostalCode    string `json:"bank_postal_code" validate:"omitempty,max=20"`
}

// ListBanks returns active banks; staff also see disabled ones.
func (h *Handler) ListBanks(c *fiber.Ctx) error {
	staff, _ := c.Locals("is_staff").(bool)
	banks, err := h.service.ListBanks(c.UserContext(), staff)
	if err != nil {
		return err
	}
	out := make([]bankResponse, 0, len(banks))
	for _, b := range banks {
		out = append(out, toBankResponse(b))
	}
	return c.JSON(out)
}

// CreateBank registers a bank.
func (h *Handler) CreateBank(c *fiber.Ctx) error {
	var req bankRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	bank, err := h.service.CreateBank(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(toBankResponse(bank))
}

// ListAccounts returns the caller's bank accounts.
func (h *Handler) ListAccounts(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	accounts, err := h.service.ListAccounts(c.UserContext(), uid)
	if err != nil {
		return err
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return c.JSON(out)
}

// CreateAccount opens a bank account for the caller.
func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req accountRequest
	if err := validation.Bind(c, &req); err != nil {
		return err
	}
	account, err := h.service.CreateAccount(c.UserContext(), uid, AccountInput{
		AccountHolderName: req.AccountHolderName,
		AccountNumber:     req.AccountNumber,
		AccountIBAN:       req.AccountIBAN,
		AccountType:       req.AccountType,
		AccountCurrency:   req.AccountCurrency,
		SwiftCode:         req.SwiftCode,
		RoutingNumber:     req.RoutingNumber,
		BankID:            req.Bank,
		CountryID:         req.Country,
		BankCity:          req.BankCity,
		BankAddress:       req.BankAddress,
		BankPostalCode:    req.BankPostalCode,
	})
	if err != nil {
		return MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toAccountResponse(account))
}

// GetAccount returns one of the caller's bank accounts.
func (h *Handler) GetAccount(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	account, err := h.service.GetAccount(c.UserContext(), uid, c.Params("id"))
	if err != nil {
		return MapError(err)
	}
	return c.JSON(toAccountResponse(account))
}

// Deactivate disables one of the caller's bank accounts.
func (h *Handler) Deactivate(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	if err := h.service.Deactivate(c.UserContext(), uid, c.Params("id")); err != nil {
		return MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// MapError converts banking errors into HTTP errors.
func MapError(err error) error {
	switch {
	case errors.Is(err, ErrBankNotFound), errors.Is(err, ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBankInactive), errors.Is(err, ErrAccountIdentifier):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAccountInactive):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
