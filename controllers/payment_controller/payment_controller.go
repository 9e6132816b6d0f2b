package payment_controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/payment_models"
	"github.com/joy095/staybook/services/payment_service"
	"github.com/joy095/staybook/utils"
	"github.com/shopspring/decimal"
)

// Workflow is implemented by *payment_service.Service.
type Workflow interface {
	Initiate(ctx context.Context, userID, bookingID uuid.UUID, phoneNumber string) (*payment_service.InitiateResult, error)
	Verify(ctx context.Context, userID uuid.UUID, txRef string) (*payment_models.Payment, error)
	Callback(ctx context.Context, in payment_service.CallbackInput) (*payment_models.Payment, bool, error)
	Status(ctx context.Context, userID, paymentID uuid.UUID) (*payment_models.Payment, error)
	CheckCallbackSignature(payload []byte, signature string) error
}

type PaymentController struct {
	workflow Workflow
}

func NewPaymentController(workflow Workflow) *PaymentController {
	return &PaymentController{workflow: workflow}
}

type InitiatePaymentRequest struct {
	BookingID   string `json:"booking_id"`
	PhoneNumber string `json:"phone_number"`
}

// InitiatePayment opens a checkout for one of the caller's bookings.
func (pc *PaymentController) InitiatePayment(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.BookingID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrBookingIDRequired.Error()})
		return
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidBookingID.Error()})
		return
	}

	res, err := pc.workflow.Initiate(c.Request.Context(), userID, bookingID, req.PhoneNumber)
	if err != nil {
		pc.handleError(c, err, "initiating payment")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"payment_id":     res.PaymentID,
		"checkout_url":   res.CheckoutURL,
		"transaction_id": res.TransactionID,
	})
}

// VerifyPayment settles a payment by asking the provider for its outcome.
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	payment, err := pc.workflow.Verify(c.Request.Context(), userID, c.Param("transaction_id"))
	if err != nil {
		pc.handleError(c, err, "verifying payment")
		return
	}

	if payment.Status == payment_models.StatusCompleted {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  payment.Status,
			"message": "Payment verified successfully",
			"payment_details": gin.H{
				"amount":         payment.Amount.StringFixed(2),
				"currency":       payment.Currency,
				"method":         payment.PaymentMethod,
				"transaction_id": payment.TransactionID,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": false,
		"status":  payment.Status,
		"message": "Payment verification failed",
	})
}

// PaymentCallback receives provider notifications. It is unauthenticated; the
// transaction reference is the only correlation key.
func (pc *PaymentController) PaymentCallback(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid callback"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}

	if err := pc.workflow.CheckCallbackSignature(body, callbackSignature(c)); err != nil {
		logger.WarnLogger.Warnf("Rejected callback from %s: %v", c.ClientIP(), err)
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid signature"})
		return
	}

	in := parseCallback(c, body)
	if in.TxRef == "" {
		logger.WarnLogger.Warn("Callback received without tx_ref")
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid callback"})
		return
	}

	_, _, err := pc.workflow.Callback(c.Request.Context(), in)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Callback processed"})
	case errors.Is(err, payment_service.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Payment not found"})
	default:
		logger.ErrorLogger.Errorf("Error processing callback for %s: %v", in.TxRef, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Callback processing failed"})
	}
}

func callbackSignature(c *gin.Context) string {
	for _, h := range []string{"Chapa-Signature", "X-Chapa-Signature", "X-Razorpay-Signature"} {
		if v := c.GetHeader(h); v != "" {
			return v
		}
	}
	return ""
}

// parseCallback reads tx_ref and status from a JSON body, a form body, or the
// query string of a redirect.
func parseCallback(c *gin.Context, body []byte) payment_service.CallbackInput {
	fields := map[string]string{}

	if len(body) > 0 && strings.Contains(c.ContentType(), "json") {
		var raw map[string]interface{}
		if err := json.Unmarshal(body, &raw); err == nil {
			for k, v := range raw {
				if s, ok := v.(string); ok {
					fields[k] = s
				}
			}
		}
	} else if len(body) > 0 {
		if err := c.Request.ParseForm(); err == nil {
			for k := range c.Request.PostForm {
				fields[k] = c.Request.PostForm.Get(k)
			}
		}
	}
	for k, v := range c.Request.URL.Query() {
		if _, ok := fields[k]; !ok && len(v) > 0 {
			fields[k] = v[0]
		}
	}

	return payment_service.CallbackInput{
		TxRef:  firstNonEmpty(fields["tx_ref"], fields["trx_ref"]),
		Status: fields["status"],
		Method: firstNonEmpty(fields["payment_method"], fields["method"]),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type PaymentStatusResponse struct {
	PaymentID         uuid.UUID       `json:"payment_id"`
	BookingID         uuid.UUID       `json:"booking_id"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	TransactionID     *string         `json:"transaction_id"`
	ProviderReference *string         `json:"provider_reference"`
	PaymentMethod     *string         `json:"payment_method"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// GetPaymentStatus returns the stored payment without contacting the provider.
func (pc *PaymentController) GetPaymentStatus(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	paymentID, err := uuid.Parse(c.Param("payment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidPaymentID.Error()})
		return
	}

	p, err := pc.workflow.Status(c.Request.Context(), userID, paymentID)
	if err != nil {
		pc.handleError(c, err, "fetching payment status")
		return
	}

	c.JSON(http.StatusOK, PaymentStatusResponse{
		PaymentID:         p.ID,
		BookingID:         p.BookingID,
		Status:            p.Status,
		Amount:            p.Amount,
		Currency:          p.Currency,
		TransactionID:     p.TransactionID,
		ProviderReference: p.ProviderReference,
		PaymentMethod:     p.PaymentMethod,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	})
}

func (pc *PaymentController) handleError(c *gin.Context, err error, action string) {
	var providerErr *payment_service.ProviderError
	switch {
	case errors.As(err, &providerErr):
		status := http.StatusBadRequest
		if providerErr.Network {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": providerErr.Message})
	case errors.Is(err, payment_service.ErrBookingNotFound),
		errors.Is(err, payment_service.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, payment_service.ErrNotPaymentOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	case errors.Is(err, payment_service.ErrAlreadyPaid),
		errors.Is(err, payment_service.ErrBookingNotPayable),
		errors.Is(err, payment_service.ErrMissingReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, payment_service.ErrInitiateInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.ErrorLogger.Errorf("Error %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
	}
}
