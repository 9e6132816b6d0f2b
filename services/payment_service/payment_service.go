package payment_service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/joy095/staybook/clients"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/payment_models"
	"github.com/joy095/staybook/services/notification_service"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Store is the persistence the workflow needs. *payment_models.Store
// implements it.
type Store interface {
	GetBookingSummary(ctx context.Context, bookingID uuid.UUID) (*payment_models.BookingSummary, error)
	GetByID(ctx context.Context, id uuid.UUID) (*payment_models.Payment, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*payment_models.Payment, error)
	GetByTransactionID(ctx context.Context, txRef string) (*payment_models.Payment, error)
	Create(ctx context.Context, p *payment_models.Payment) error
	AssignTransaction(ctx context.Context, id uuid.UUID, txRef string, amount decimal.Decimal, currency, gateway string) (bool, error)
	RecordCheckout(ctx context.Context, id uuid.UUID, txRef, providerRef, checkoutURL string) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, method string) (bool, error)
	Fail(ctx context.Context, id uuid.UUID) (bool, error)
	RecordEvent(ctx context.Context, e *payment_models.PaymentEvent) error
}

// Options are the deployment settings of the workflow.
type Options struct {
	// Currency every payment settles in, whatever the listing displays.
	Currency string
	// CallbackURL is where the provider posts payment outcomes.
	CallbackURL string
	// ReturnURL is where the payer lands after checkout.
	ReturnURL string
	// SignedCallbacks enables signature checks on callbacks that carry one.
	SignedCallbacks bool
}

type Service struct {
	store      Store
	gateway    clients.PaymentGateway
	dispatcher notification_service.Dispatcher
	opts       Options

	verifies singleflight.Group
	// newSuffix produces the random tail of transaction references.
	newSuffix func() string
}

func NewService(store Store, gateway clients.PaymentGateway, dispatcher notification_service.Dispatcher, opts Options) *Service {
	return &Service{
		store:      store,
		gateway:    gateway,
		dispatcher: dispatcher,
		opts:       opts,
		newSuffix:  randomSuffix,
	}
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return hex.EncodeToString(b)
}

// TransactionReference formats the correlation key sent to the provider.
func TransactionReference(bookingID uuid.UUID, suffix string) string {
	return fmt.Sprintf("booking_%s_%s", bookingID, suffix)
}

type InitiateResult struct {
	PaymentID     uuid.UUID
	CheckoutURL   string
	TransactionID string
}

// Initiate opens a checkout for a booking owned by userID. A booking without
// a payment gets a new pending one; a failed or cancelled payment is reused
// with a fresh transaction reference. A pending payment that already has a
// checkout returns that checkout again.
func (s *Service) Initiate(ctx context.Context, userID, bookingID uuid.UUID, phoneNumber string) (*InitiateResult, error) {
	booking, err := s.store.GetBookingSummary(ctx, bookingID)
	if err != nil {
		if errors.Is(err, payment_models.ErrBookingNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrBookingNotFound
	}
	if booking.Status == "cancelled" || booking.Status == "completed" {
		return nil, ErrBookingNotPayable
	}

	payment, err := s.paymentFor(ctx, booking)
	if err != nil {
		return nil, err
	}
	if res, done, err := existingCheckout(payment); done {
		return res, err
	}

	txRef := TransactionReference(bookingID, s.newSuffix())
	assigned, err := s.store.AssignTransaction(ctx, payment.ID, txRef, booking.TotalPrice, s.opts.Currency, s.gateway.Name())
	if err != nil {
		return nil, err
	}
	if !assigned {
		return s.resolveLostInitiate(ctx, payment.ID)
	}

	log := logger.InfoLogger.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"booking_id": bookingID,
		"tx_ref":     txRef,
	})

	firstName := booking.FirstName
	if firstName == "" {
		firstName = booking.Username
	}
	result, err := s.gateway.Initiate(ctx, clients.InitiateRequest{
		Amount:   booking.TotalPrice,
		Currency: s.opts.Currency,
		Payer: clients.Payer{
			Email:       booking.Email,
			FirstName:   firstName,
			LastName:    booking.LastName,
			PhoneNumber: phoneNumber,
		},
		TxRef:       txRef,
		CallbackURL: s.opts.CallbackURL,
		ReturnURL:   s.opts.ReturnURL,
		Title:       "Booking payment",
		Description: "Booking payment for " + booking.ListingTitle,
		Metadata: map[string]string{
			"booking_id": bookingID.String(),
			"payment_id": payment.ID.String(),
			"user_id":    userID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gateway initiate: %w", err)
	}
	if !result.Success {
		logger.WarnLogger.Warnf("Payment initiation failed for booking %s: %s", bookingID, result.Error)
		return nil, providerError(result)
	}

	recorded, err := s.store.RecordCheckout(ctx, payment.ID, txRef, result.ProviderReference, result.CheckoutURL)
	if err != nil {
		return nil, err
	}
	if !recorded {
		return s.resolveLostInitiate(ctx, payment.ID)
	}

	log.Info("Payment initiated")
	return &InitiateResult{
		PaymentID:     payment.ID,
		CheckoutURL:   result.CheckoutURL,
		TransactionID: txRef,
	}, nil
}

// paymentFor returns the booking's payment, creating it on first use.
func (s *Service) paymentFor(ctx context.Context, booking *payment_models.BookingSummary) (*payment_models.Payment, error) {
	payment, err := s.store.GetByBookingID(ctx, booking.BookingID)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, payment_models.ErrPaymentNotFound) {
		return nil, err
	}

	payment, err = payment_models.NewPayment(booking.BookingID, booking.TotalPrice, s.opts.Currency, s.gateway.Name())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, payment); err != nil {
		if errors.Is(err, payment_models.ErrPaymentExists) {
			return s.store.GetByBookingID(ctx, booking.BookingID)
		}
		return nil, err
	}
	return payment, nil
}

// existingCheckout decides whether a stored payment already answers an
// initiate request.
func existingCheckout(p *payment_models.Payment) (*InitiateResult, bool, error) {
	switch p.Status {
	case payment_models.StatusCompleted:
		return nil, true, ErrAlreadyPaid
	case payment_models.StatusPending:
		if p.CheckoutURL != nil && p.TransactionID != nil {
			return &InitiateResult{
				PaymentID:     p.ID,
				CheckoutURL:   *p.CheckoutURL,
				TransactionID: *p.TransactionID,
			}, true, nil
		}
	}
	return nil, false, nil
}

// resolveLostInitiate answers a request whose write lost to a concurrent
// initiate or settlement of the same payment.
func (s *Service) resolveLostInitiate(ctx context.Context, paymentID uuid.UUID) (*InitiateResult, error) {
	current, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if res, done, err := existingCheckout(current); done {
		return res, err
	}
	return nil, ErrInitiateInProgress
}

// Verify asks the provider for the outcome of a transaction and applies it.
// Completed payments are returned as stored without contacting the provider.
// A failed or cancelled payment keeps its status, but a success the provider
// reports for it is recorded and logged for reconciliation.
// Concurrent verifies of one reference share a single provider call.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, txRef string) (*payment_models.Payment, error) {
	if txRef == "" {
		return nil, ErrMissingReference
	}
	payment, err := s.store.GetByTransactionID(ctx, txRef)
	if err != nil {
		if errors.Is(err, payment_models.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.UserID != userID {
		return nil, ErrNotPaymentOwner
	}
	switch payment.Status {
	case payment_models.StatusPending:
	case payment_models.StatusFailed, payment_models.StatusCancelled:
		return s.recheckClosed(ctx, payment, txRef), nil
	default:
		return payment, nil
	}

	v, err, _ := s.verifies.Do(txRef, func() (interface{}, error) {
		return s.verifyWithProvider(context.WithoutCancel(ctx), payment, txRef)
	})
	if err != nil {
		return nil, err
	}
	return v.(*payment_models.Payment), nil
}

func (s *Service) verifyWithProvider(ctx context.Context, payment *payment_models.Payment, txRef string) (*payment_models.Payment, error) {
	result, err := s.gateway.Verify(ctx, txRef)
	if err != nil {
		return nil, fmt.Errorf("gateway verify: %w", err)
	}
	if !result.Success {
		logger.WarnLogger.Warnf("Payment verification failed for %s: %s", txRef, result.Error)
		return nil, providerError(result)
	}
	settled, _, err := s.settle(ctx, payment, payment_models.SourceVerify, txRef, result.Status, result.Method)
	return settled, err
}

// recheckClosed looks for a success the provider captured after the payment
// was closed. The stored payment is returned whatever the outcome.
func (s *Service) recheckClosed(ctx context.Context, payment *payment_models.Payment, txRef string) *payment_models.Payment {
	result, err := s.gateway.Verify(ctx, txRef)
	if err != nil || !result.Success {
		return payment
	}
	if !strings.EqualFold(result.Status, clients.StatusSuccess) {
		return payment
	}
	current, _, err := s.settle(ctx, payment, payment_models.SourceVerify, txRef, result.Status, result.Method)
	if err != nil {
		logger.WarnLogger.Warnf("Recheck of %s payment %s failed: %v", payment.Status, payment.ID, err)
		return payment
	}
	return current
}

type CallbackInput struct {
	TxRef  string
	Status string
	Method string
}

// Callback applies a provider-reported outcome. It reports whether this call
// changed the payment; a repeated or late callback returns the stored state
// with applied false.
func (s *Service) Callback(ctx context.Context, in CallbackInput) (*payment_models.Payment, bool, error) {
	if in.TxRef == "" {
		return nil, false, ErrMissingReference
	}
	payment, err := s.store.GetByTransactionID(ctx, in.TxRef)
	if err != nil {
		if errors.Is(err, payment_models.ErrPaymentNotFound) {
			logger.WarnLogger.Warnf("Payment not found for callback tx_ref %s", in.TxRef)
			return nil, false, ErrPaymentNotFound
		}
		return nil, false, err
	}

	return s.settle(ctx, payment, payment_models.SourceCallback, in.TxRef, in.Status, in.Method)
}

// CheckCallbackSignature rejects a signed callback whose signature does not
// match. Unsigned callbacks are accepted.
func (s *Service) CheckCallbackSignature(payload []byte, signature string) error {
	if !s.opts.SignedCallbacks || signature == "" {
		return nil
	}
	if !s.gateway.VerifyWebhookSignature(payload, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// settle moves a pending payment to completed or failed. The store only
// changes a row that is still pending, so whichever of verify and callback
// lands first wins and only that caller notifies.
func (s *Service) settle(ctx context.Context, payment *payment_models.Payment, source, txRef, providerStatus, method string) (*payment_models.Payment, bool, error) {
	target := payment_models.StatusFailed
	if strings.EqualFold(providerStatus, clients.StatusSuccess) {
		target = payment_models.StatusCompleted
	}

	var applied bool
	var err error
	if target == payment_models.StatusCompleted {
		applied, err = s.store.Complete(ctx, payment.ID, method)
	} else {
		applied, err = s.store.Fail(ctx, payment.ID)
	}
	if err != nil {
		return nil, false, err
	}

	s.recordEvent(ctx, &payment_models.PaymentEvent{
		PaymentID:      payment.ID,
		Source:         source,
		TransactionID:  txRef,
		ProviderStatus: providerStatus,
		PreviousStatus: payment.Status,
		NewStatus:      target,
		Applied:        applied,
	})

	fields := logrus.Fields{
		"payment_id": payment.ID,
		"tx_ref":     txRef,
		"source":     source,
	}
	current, err := s.store.GetByID(ctx, payment.ID)
	if err != nil {
		if !applied {
			return nil, false, err
		}
		// The transition is committed; the confirmation must still go out.
		logger.WarnLogger.WithFields(fields).Warnf("Payment %s but re-read failed: %v", target, err)
		current = settledCopy(payment, target, method)
	}

	log := logger.InfoLogger.WithFields(fields)
	if !applied {
		if target == payment_models.StatusCompleted && current.Status != payment_models.StatusCompleted {
			logger.ErrorLogger.WithFields(fields).Errorf("Provider reports success for %s payment, funds need manual reconciliation", current.Status)
			return current, false, nil
		}
		log.Infof("Payment already %s, %s ignored", current.Status, source)
		return current, false, nil
	}
	log.Infof("Payment %s", target)

	if target == payment_models.StatusCompleted {
		s.notifyConfirmed(ctx, current)
	}
	return current, true, nil
}

// settledCopy is the payment as the store now holds it, built locally when it
// cannot be read back.
func settledCopy(p *payment_models.Payment, status, method string) *payment_models.Payment {
	cp := *p
	cp.Status = status
	if status == payment_models.StatusCompleted && method != "" {
		cp.PaymentMethod = &method
	}
	return &cp
}

func (s *Service) recordEvent(ctx context.Context, e *payment_models.PaymentEvent) {
	if err := s.store.RecordEvent(ctx, e); err != nil {
		logger.WarnLogger.Warnf("Payment event for %s not recorded: %v", e.PaymentID, err)
	}
}

// notifyConfirmed enqueues the confirmation email. Failures are logged and
// never affect the payment.
func (s *Service) notifyConfirmed(ctx context.Context, p *payment_models.Payment) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notification_service.DispatchTimeout)
	defer cancel()

	event := notification_service.PaymentConfirmed{
		PaymentID: p.ID,
		BookingID: p.BookingID,
		Email:     p.UserEmail,
		Amount:    p.Amount,
		Currency:  p.Currency,
	}
	if p.PaymentMethod != nil {
		event.PaymentMethod = *p.PaymentMethod
	}
	if booking, err := s.store.GetBookingSummary(ctx, p.BookingID); err == nil {
		event.Name = booking.FirstName
		if event.Name == "" {
			event.Name = booking.Username
		}
		event.ListingTitle = booking.ListingTitle
	}

	if err := s.dispatcher.PaymentConfirmed(ctx, event); err != nil {
		logger.ErrorLogger.Errorf("Failed to enqueue confirmation for payment %s: %v", p.ID, err)
	}
}

// Status returns the stored payment for its owner.
func (s *Service) Status(ctx context.Context, userID, paymentID uuid.UUID) (*payment_models.Payment, error) {
	payment, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, payment_models.ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.UserID != userID {
		return nil, ErrNotPaymentOwner
	}
	return payment, nil
}
