package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/config"
	"github.com/taskhub/marketplace/internal/logging"
	"github.com/taskhub/marketplace/internal/validation"
)

func decode(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}

func TestErrorHandlerShapes(t *testing.T) {
	app := NewApp(config.Config{AppName: "test"}, logging.Discard())
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "wallet not found")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("connection refused: secret-host:5432")
	})
	app.Post("/validate", func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email" validate:"required,email"`
		}
		return validation.Bind(c, &req)
	})

	status, body := decode(t, app, fiber.MethodGet, "/missing", "")
	if status != fiber.StatusNotFound || body["error"] != "wallet not found" {
		t.Fatalf("unexpected not found response %d %v", status, body)
	}

	status, body = decode(t, app, fiber.MethodGet, "/boom", "")
	if status != fiber.StatusInternalServerError || strings.Contains(body["error"].(string), "secret-host") {
		t.Fatalf("expected opaque 500, got %d %v", status, body)
	}

	status, body = decode(t, app, fiber.MethodPost, "/validate", `{"email":"nope"}`)
	if status != fiber.StatusBadRequest || body["message"] != "Invalid request data" {
		t.Fatalf("unexpected validation response %d %v", status, body)
	}
	details, _ := body["details"].([]any)
	if len(details) != 1 || details[0].(map[string]any)["field"] != "email" {
		t.Fatalf("unexpected validation details %v", body["details"])
	}
}
