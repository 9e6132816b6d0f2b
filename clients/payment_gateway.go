package clients

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider-reported payment status meaning the money was captured.
const StatusSuccess = "success"

// Error text used for every transport-level failure (timeout, DNS, reset, 5xx).
const ErrMsgNetwork = "network error"

// PaymentGateway isolates calls to an external payment provider.
// Expected failures (declines, provider downtime) come back inside the
// GatewayResult. The error return is reserved for faults in our own request
// construction and should never be shown to end users.
type PaymentGateway interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (*GatewayResult, error)
	Verify(ctx context.Context, txRef string) (*GatewayResult, error)
	VerifyWebhookSignature(payload []byte, signature string) bool
}

// Payer is the identity forwarded to the provider's hosted checkout.
type Payer struct {
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
}

type InitiateRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Payer       Payer
	TxRef       string
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
	Metadata    map[string]string
}

type GatewayResult struct {
	Success           bool
	CheckoutURL       string
	ProviderReference string
	// Status is the payment status reported by Verify, normalized so that
	// StatusSuccess always means captured.
	Status  string
	Method  string
	Error   string
	Network bool
}

func networkFailure() *GatewayResult {
	return &GatewayResult{Success: false, Error: ErrMsgNetwork, Network: true}
}

func providerFailure(msg, fallback string) *GatewayResult {
	if msg == "" {
		msg = fallback
	}
	return &GatewayResult{Success: false, Error: msg}
}
