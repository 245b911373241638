package stripeconnect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/taskhub/marketplace/internal/wallet"
)

const requestTimeout = 10 * time.Second

// ErrUnauthorized is returned when Stripe rejects the API key.
var ErrUnauthorized = errors.New("stripe rejected the api key")

// Client reads Connect balances from the Stripe API.
type Client struct {
	http *resty.Client
}

// NewClient builds a client for baseURL authenticated with apiKey.
func NewClient(baseURL, apiKey string) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetTimeout(requestTimeout).
		SetRetryCount(2).
		SetHeader("Accept", "application/json")
	return &Client{http: httpClient}
}

type amount struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type balanceResponse struct {
	Available []amount `json:"available"`
	Pending   []amount `json:"pending"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Balance fetches the balance of the connected account accountID. Amounts are
// converted from minor units.
func (c *Client) Balance(ctx context.Context, accountID string) (wallet.ConnectBalance, error) {
	var (
		out     balanceResponse
		failure errorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Stripe-Account", accountID).
		SetResult(&out).
		SetError(&failure).
		Get("/v1/balance")
	if err != nil {
		return wallet.ConnectBalance{}, fmt.Errorf("stripe balance: %w", err)
	}
	if resp.StatusCode() == 401 {
		return wallet.ConnectBalance{}, ErrUnauthorized
	}
	if resp.IsError() {
		return wallet.ConnectBalance{}, fmt.Errorf("stripe balance: %s: %s", resp.Status(), failure.Error.Message)
	}

	var balance wallet.ConnectBalance
	if len(out.Available) > 0 {
		balance.Available = fromMinor(out.Available[0].Amount)
		balance.AvailableCurrency = out.Available[0].Currency
	}
	if len(out.Pending) > 0 {
		balance.Pending = fromMinor(out.Pending[0].Amount)
		balance.PendingCurrency = out.Pending[0].Currency
	}
	return balance, nil
}

func fromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
