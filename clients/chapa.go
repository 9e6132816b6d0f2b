package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/joy095/staybook/config"
	"github.com/joy095/staybook/logger"
	"github.com/sirupsen/logrus"
)

const defaultGatewayTimeout = 30 * time.Second

// ChapaClient implements PaymentGateway against the Chapa REST API.
type ChapaClient struct {
	BaseURL       string
	SecretKey     string
	WebhookSecret string
	HTTPClient    *http.Client
}

type chapaCustomization struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type chapaInitializeRequest struct {
	Amount        string             `json:"amount"`
	Currency      string             `json:"currency"`
	Email         string             `json:"email"`
	FirstName     string             `json:"first_name"`
	LastName      string             `json:"last_name"`
	PhoneNumber   string             `json:"phone_number,omitempty"`
	TxRef         string             `json:"tx_ref"`
	CallbackURL   string             `json:"callback_url"`
	ReturnURL     string             `json:"return_url"`
	Customization chapaCustomization `json:"customization"`
	Meta          map[string]string  `json:"meta,omitempty"`
}

type chapaResponse struct {
	Message json.RawMessage `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

type chapaInitializeData struct {
	CheckoutURL string `json:"checkout_url"`
	Reference   string `json:"reference"`
}

type chapaVerifyData struct {
	Status    string `json:"status"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	TxRef     string `json:"tx_ref"`
}

// NewChapaClient builds a client from injected gateway settings.
func NewChapaClient(cfg config.GatewayConfig) *ChapaClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &ChapaClient{
		BaseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		SecretKey:     cfg.SecretKey,
		WebhookSecret: cfg.WebhookSecret,
		HTTPClient:    &http.Client{Timeout: timeout},
	}
}

func (c *ChapaClient) Name() string { return "chapa" }

func (c *ChapaClient) Initiate(ctx context.Context, req InitiateRequest) (*GatewayResult, error) {
	payload := chapaInitializeRequest{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Email:       req.Payer.Email,
		FirstName:   req.Payer.FirstName,
		LastName:    req.Payer.LastName,
		PhoneNumber: req.Payer.PhoneNumber,
		TxRef:       req.TxRef,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
		Customization: chapaCustomization{
			Title:       req.Title,
			Description: req.Description,
		},
		Meta: req.Metadata,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create initialize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, failure := c.do(httpReq, req.TxRef)
	if failure != nil {
		return failure, nil
	}
	if resp.Status != "success" {
		return providerFailure(resp.message(), "payment initialization failed"), nil
	}

	var data chapaInitializeData
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.CheckoutURL == "" {
		return providerFailure("", "payment initialization failed"), nil
	}

	return &GatewayResult{
		Success:           true,
		CheckoutURL:       data.CheckoutURL,
		ProviderReference: data.Reference,
	}, nil
}

func (c *ChapaClient) Verify(ctx context.Context, txRef string) (*GatewayResult, error) {
	endpoint := c.BaseURL + "/transaction/verify/" + url.PathEscape(txRef)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verify request: %w", err)
	}

	resp, failure := c.do(httpReq, txRef)
	if failure != nil {
		return failure, nil
	}
	if resp.Status != "success" {
		return providerFailure(resp.message(), "payment verification failed"), nil
	}

	var data chapaVerifyData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return providerFailure("", "payment verification failed"), nil
	}

	return &GatewayResult{
		Success:           true,
		ProviderReference: data.Reference,
		Status:            strings.ToLower(data.Status),
		Method:            data.Method,
	}, nil
}

// VerifyWebhookSignature checks a hex HMAC-SHA256 of the raw payload.
func (c *ChapaClient) VerifyWebhookSignature(payload []byte, signature string) bool {
	if c.WebhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// do sends an authenticated request. A non-nil GatewayResult means the call
// failed and that result should be handed back to the caller as is.
func (c *ChapaClient) do(req *http.Request, txRef string) (*chapaResponse, *GatewayResult) {
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	log := logger.ErrorLogger.WithFields(logrus.Fields{
		"gateway": c.Name(),
		"tx_ref":  txRef,
		"path":    req.URL.Path,
	})

	httpResp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Errorf("Network error calling payment provider: %v", err)
		return nil, networkFailure()
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		log.Errorf("Failed to read payment provider response: %v", err)
		return nil, networkFailure()
	}

	if httpResp.StatusCode >= http.StatusInternalServerError {
		log.Errorf("Payment provider unavailable: %d", httpResp.StatusCode)
		return nil, networkFailure()
	}

	var parsed chapaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.Errorf("Unreadable payment provider response (status %d): %v", httpResp.StatusCode, err)
		return nil, providerFailure("", "unexpected response from payment provider")
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		logger.WarnLogger.WithFields(log.Data).Warnf("Payment provider rejected request (status %d): %s", httpResp.StatusCode, parsed.message())
		if parsed.Status == "" || parsed.Status == "success" {
			parsed.Status = "failed"
		}
	}

	return &parsed, nil
}

// message flattens Chapa's message field, which is either a string or a map of
// field validation errors.
func (r *chapaResponse) message() string {
	if len(r.Message) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(r.Message, &s); err == nil {
		return s
	}

	var fields map[string][]string
	if err := json.Unmarshal(r.Message, &fields); err == nil {
		keys := make([]string, 0, len(fields))
		for field := range fields {
			keys = append(keys, field)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, field := range keys {
			parts = append(parts, field+": "+strings.Join(fields[field], ", "))
		}
		return strings.Join(parts, "; ")
	}

	return string(r.Message)
}
