package funding

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway represents a connector to the external card processor and payout rail.
type Gateway interface {
	AuthorizeCardIn(ctx context.Context, input CardInAuthorization) (AuthorizationDecision, error)
	AuthorizePayout(ctx context.Context, input PayoutAuthorization) (AuthorizationDecision, error)
}

// AuthorizationDecision captures the response from the gateway.
type AuthorizationDecision struct {
	Reference string
	Status    string
}

// Approved reports whether the gateway accepted the request.
func (d AuthorizationDecision) Approved() bool {
	return d.Status == StatusApproved
}

// StatusApproved and StatusDeclined are the gateway decision statuses.
const (
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// CardInAuthorization encapsulates details needed for a card top-up authorization.
type CardInAuthorization struct {
	CardNumber string
	Expiry     string
	CVV        string
	Amount     decimal.Decimal
}

// PayoutAuthorization captures data for a bank payout.
type PayoutAuthorization struct {
	AccountHolder string
	AccountNumber string
	AccountIBAN   string
	SwiftCode     string
	Currency      string
	Amount        decimal.Decimal
}

// StaticGateway approves every request with a synthetic reference.
type StaticGateway struct{}

// AuthorizeCardIn approves the funding request.
func (StaticGateway) AuthorizeCardIn(_ context.Context, _ CardInAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: StatusApproved}, nil
}

// AuthorizePayout approves the payout request.
func (StaticGateway) AuthorizePayout(_ context.Context, _ PayoutAuthorization) (AuthorizationDecision, error) {
	return AuthorizationDecision{Reference: uuid.NewString(), Status: StatusApproved}, nil
}
