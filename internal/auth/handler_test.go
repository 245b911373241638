package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/taskhub/marketplace/internal/identity"
	"github.com/taskhub/marketplace/internal/logging"
	"github.com/taskhub/marketplace/internal/wallet"
)

type unavailableWallets struct {
	wallet.Repository
	down bool
}

func (r *unavailableWallets) Create(ctx context.Context, w wallet.Wallet) error {
	if r.down {
		return errors.New("wallet store unavailable")
	}
	return r.Repository.Create(ctx, w)
}

func TestRegisterSurvivesWalletFailure(t *testing.T) {
	ids := identity.NewService(identity.NewMemoryRepository())
	repo := &unavailableWallets{Repository: wallet.NewMemoryRepository(), down: true}
	wallets := wallet.NewService(repo, nil)
	h := NewHandler(ids, nil, wallets, logging.Discard())

	app := fiber.New()
	app.Post("/auth/register", h.Register)

	body := `{"username":"ada","email":"ada@example.com","password":"password1"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.UserID == "" || out.WalletID != "" {
		t.Fatalf("expected user without wallet id, got %+v", out)
	}

	repo.down = false
	w, err := wallets.GetByUser(context.Background(), out.UserID)
	if err != nil {
		t.Fatalf("wallet should be provisioned on first use: %v", err)
	}
	again, err := wallets.GetByUser(context.Background(), out.UserID)
	if err != nil || again.ID != w.ID {
		t.Fatalf("expected the same wallet, got %s (%v)", again.ID, err)
	}
}
