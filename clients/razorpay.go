package clients

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/joy095/staybook/config"
	"github.com/joy095/staybook/logger"
	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// RazorpayLinkAPI is the slice of the Razorpay SDK used for payment links.
// This interface allows for easier testing by mocking Razorpay interactions.
type RazorpayLinkAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	All(queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway implements PaymentGateway with Razorpay payment links.
type RazorpayGateway struct {
	Links         RazorpayLinkAPI
	WebhookSecret string
	Timeout       time.Duration
}

// NewRazorpayGateway initializes the Razorpay SDK client from injected settings.
func NewRazorpayGateway(cfg config.GatewayConfig) *RazorpayGateway {
	client := razorpay.NewClient(cfg.KeyID, cfg.SecretKey)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &RazorpayGateway{
		Links:         client.PaymentLink,
		WebhookSecret: cfg.WebhookSecret,
		Timeout:       timeout,
	}
}

func (r *RazorpayGateway) Name() string { return "razorpay" }

func (r *RazorpayGateway) Initiate(ctx context.Context, req InitiateRequest) (*GatewayResult, error) {
	notes := map[string]interface{}{"tx_ref": req.TxRef}
	for k, v := range req.Metadata {
		notes[k] = v
	}

	data := map[string]interface{}{
		"amount":       req.Amount.Shift(2).IntPart(),
		"currency":     req.Currency,
		"reference_id": RazorpayReferenceID(req.TxRef),
		"description":  req.Description,
		"customer": map[string]interface{}{
			"name":    strings.TrimSpace(req.Payer.FirstName + " " + req.Payer.LastName),
			"email":   req.Payer.Email,
			"contact": req.Payer.PhoneNumber,
		},
		"notify":          map[string]interface{}{"email": true},
		"callback_url":    req.ReturnURL,
		"callback_method": "get",
		"notes":           notes,
	}

	link, failure := r.call(ctx, req.TxRef, func() (map[string]interface{}, error) {
		return r.Links.Create(data, nil)
	}, "payment initialization failed")
	if failure != nil {
		return failure, nil
	}

	shortURL, _ := link["short_url"].(string)
	id, _ := link["id"].(string)
	if shortURL == "" {
		return providerFailure("", "payment initialization failed"), nil
	}

	return &GatewayResult{Success: true, CheckoutURL: shortURL, ProviderReference: id}, nil
}

func (r *RazorpayGateway) Verify(ctx context.Context, txRef string) (*GatewayResult, error) {
	query := map[string]interface{}{"reference_id": RazorpayReferenceID(txRef)}

	body, failure := r.call(ctx, txRef, func() (map[string]interface{}, error) {
		return r.Links.All(query, nil)
	}, "payment verification failed")
	if failure != nil {
		return failure, nil
	}

	links, _ := body["payment_links"].([]interface{})
	if len(links) == 0 {
		return providerFailure("", "payment verification failed"), nil
	}
	link, _ := links[0].(map[string]interface{})

	status, _ := link["status"].(string)
	if status == "paid" {
		status = StatusSuccess
	}

	result := &GatewayResult{Success: true, Status: status}
	result.ProviderReference, _ = link["id"].(string)
	if payments, ok := link["payments"].([]interface{}); ok && len(payments) > 0 {
		if p, ok := payments[0].(map[string]interface{}); ok {
			result.Method, _ = p["method"].(string)
		}
	}
	return result, nil
}

func (r *RazorpayGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	if r.WebhookSecret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(payload), signature, r.WebhookSecret)
}

// call runs a blocking SDK request under the gateway timeout.
func (r *RazorpayGateway) call(ctx context.Context, txRef string, fn func() (map[string]interface{}, error), fallback string) (map[string]interface{}, *GatewayResult) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	type outcome struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		body, err := fn()
		done <- outcome{body, err}
	}()

	select {
	case <-ctx.Done():
		logger.ErrorLogger.Errorf("Razorpay call timed out for %s: %v", txRef, ctx.Err())
		return nil, networkFailure()
	case out := <-done:
		if out.err == nil {
			return out.body, nil
		}
		var netErr net.Error
		if errors.As(out.err, &netErr) {
			logger.ErrorLogger.Errorf("Network error calling Razorpay for %s: %v", txRef, out.err)
			return nil, networkFailure()
		}
		logger.WarnLogger.Warnf("Razorpay rejected request for %s: %v", txRef, out.err)
		return nil, providerFailure(out.err.Error(), fallback)
	}
}

// RazorpayReferenceID compresses a transaction reference into Razorpay's
// 40 character reference_id limit. booking_<uuid>_<8hex> maps to the 32 hex
// digits of the uuid followed by the 8 hex suffix.
func RazorpayReferenceID(txRef string) string {
	ref := strings.TrimPrefix(txRef, "booking_")
	ref = strings.NewReplacer("-", "", "_", "").Replace(ref)
	if len(ref) > 40 {
		ref = ref[len(ref)-40:]
	}
	return ref
}
