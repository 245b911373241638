package routes_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/taskhub/marketplace/internal/config"
	"github.com/taskhub/marketplace/internal/logging"
	"github.com/taskhub/marketplace/internal/routes"
	"github.com/taskhub/marketplace/internal/server"
)

type client struct {
	t   *testing.T
	app *fiber.App
}

func newClient(t *testing.T) (client, routes.Services) {
	t.Helper()
	cfg := config.Config{
		AppName:         "TaskHub",
		AppEnv:          "development",
		JWTSecret:       "access",
		RefreshSecret:   "refresh",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		IdempotencyTTL:  time.Hour,
		CatalogCacheTTL: time.Minute,
		LoginRate:       5,
		MediaRoot:       t.TempDir(),
		StaticRoot:      t.TempDir(),
	}
	logger := logging.Discard()
	app := server.NewApp(cfg, logger)
	services, err := routes.Setup(app, routes.Deps{Cfg: cfg, Logger: logger})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return client{t: t, app: app}, services
}

func (c client) do(method, path, token, body string, headers ...string) (int, map[string]any) {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := c.app.Test(req, -1)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			c.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode, out
}

func (c client) register(username string) string {
	c.t.Helper()
	body := `{"username":"` + username + `","email":"` + username + `@example.com","password":"password1"}`
	if status, out := c.do(fiber.MethodPost, "/api/v1/auth/register", "", body); status != fiber.StatusCreated {
		c.t.Fatalf("register %s: %d %v", username, status, out)
	}
	return c.login(username)
}

func (c client) login(login string) string {
	c.t.Helper()
	status, out := c.do(fiber.MethodPost, "/api/v1/auth/login", "", `{"login":"`+login+`","password":"password1"}`)
	if status != fiber.StatusOK {
		c.t.Fatalf("login %s: %d %v", login, status, out)
	}
	return out["access_token"].(string)
}

func amount(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, _ := v.(string)
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse amount %v: %v", v, err)
	}
	return d
}

func TestHealthAndMetrics(t *testing.T) {
	c, _ := newClient(t)
	status, out := c.do(fiber.MethodGet, "/healthz", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected healthy dev server, got %d %v", status, out)
	}
	c.do(fiber.MethodGet, "/api/v1/ping", "", "")

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := c.app.Test(req, -1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "taskhub_http_request_duration_seconds") {
		t.Fatalf("expected request histogram in metrics output")
	}
}

func TestProtectedAndStaffRoutes(t *testing.T) {
	c, _ := newClient(t)
	if status, _ := c.do(fiber.MethodGet, "/api/v1/wallet", "", ""); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
	token := c.register("alice")
	status, out := c.do(fiber.MethodGet, "/api/v1/wallet", token, "")
	if status != fiber.StatusOK || out["user"] == "" {
		t.Fatalf("expected wallet provisioned on registration, got %d %v", status, out)
	}
	if status, _ := c.do(fiber.MethodGet, "/api/v1/wallet/list", token, ""); status != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-staff, got %d", status)
	}
	if status, _ := c.do(fiber.MethodPost, "/api/v1/categories", token, `{"name":"Cleaning"}`); status != fiber.StatusForbidden {
		t.Fatalf("expected 403 creating category, got %d", status)
	}
	status, out = c.do(fiber.MethodPost, "/api/v1/auth/register", "", `{"username":"bob","email":"not-an-email","password":"password1"}`)
	if status != fiber.StatusBadRequest || out["message"] != "Invalid request data" {
		t.Fatalf("expected validation error, got %d %v", status, out)
	}
}

func TestServicePurchaseFlow(t *testing.T) {
	c, services := newClient(t)
	ctx := context.Background()

	if _, err := services.Identity.EnsureStaff(ctx, "admin@example.com", "password1"); err != nil {
		t.Fatalf("ensure staff: %v", err)
	}
	admin := c.login("admin@example.com")
	status, category := c.do(fiber.MethodPost, "/api/v1/categories", admin, `{"name":"Home Cleaning"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("create category: %d %v", status, category)
	}

	seller := c.register("seller")
	if status, out := c.do(fiber.MethodPost, "/api/v1/providers", seller, `{"company_name":"Sparkle"}`); status != fiber.StatusCreated {
		t.Fatalf("become provider: %d %v", status, out)
	}
	body := `{"category":"` + category["id"].(string) + `","title":"Deep clean","description":"<p>Everything</p>","price":"30.00"}`
	status, service := c.do(fiber.MethodPost, "/api/v1/services", seller, body)
	if status != fiber.StatusCreated {
		t.Fatalf("create service: %d %v", status, service)
	}
	serviceID := service["id"].(string)

	buyer := c.register("buyer")
	if status, _ := c.do(fiber.MethodPost, "/api/v1/services/"+serviceID+"/pay", buyer, "{}"); status != fiber.StatusBadRequest {
		t.Fatalf("expected Idempotency-Key to be required, got %d", status)
	}
	status, out := c.do(fiber.MethodPost, "/api/v1/services/"+serviceID+"/pay", buyer, "{}", "Idempotency-Key", "pay-1")
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected insufficient funds, got %d %v", status, out)
	}

	deposit := `{"card_number":"4111111111111111","expiry":"12/49","cvv":"123","amount":"100.00"}`
	if status, out := c.do(fiber.MethodPost, "/api/v1/wallet/deposit/card", buyer, deposit, "Idempotency-Key", "dep-1"); status != fiber.StatusCreated {
		t.Fatalf("card deposit: %d %v", status, out)
	}
	status, out = c.do(fiber.MethodPost, "/api/v1/services/"+serviceID+"/pay", buyer, "{}", "Idempotency-Key", "pay-2")
	if status != fiber.StatusCreated {
		t.Fatalf("pay: %d %v", status, out)
	}
	if status, _ := c.do(fiber.MethodPost, "/api/v1/services/"+serviceID+"/pay", seller, "{}", "Idempotency-Key", "pay-3"); status != fiber.StatusForbidden {
		t.Fatalf("expected provider to be refused paying own service, got %d", status)
	}

	_, buyerWallet := c.do(fiber.MethodGet, "/api/v1/wallet", buyer, "")
	if got := amount(t, buyerWallet["balance_available"]); !got.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected buyer balance 70, got %s", got)
	}
	_, sellerWallet := c.do(fiber.MethodGet, "/api/v1/wallet", seller, "")
	if got := amount(t, sellerWallet["total_earnings"]); !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected seller earnings 30, got %s", got)
	}

	if status, out := c.do(fiber.MethodPost, "/api/v1/services/"+serviceID+"/reviews", buyer, `{"rating":4}`); status != fiber.StatusCreated {
		t.Fatalf("review: %d %v", status, out)
	}
	_, provider := c.do(fiber.MethodGet, "/api/v1/providers/me", seller, "")
	if provider["rating"] != 4.0 || provider["total_reviews"] != 1.0 {
		t.Fatalf("expected provider rating refreshed, got %v", provider)
	}

	status, home := c.do(fiber.MethodGet, "/api/v1/home", "", "")
	if status != fiber.StatusOK {
		t.Fatalf("home: %d", status)
	}
	popular, _ := home["popular_services"].([]any)
	if len(popular) != 1 {
		t.Fatalf("expected one popular service, got %v", home["popular_services"])
	}
}
