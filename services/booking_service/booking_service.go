package booking_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/booking_models"
	"github.com/joy095/staybook/models/listing_models"
	"github.com/joy095/staybook/models/user_models"
	"github.com/joy095/staybook/services/notification_service"
)

var (
	ErrCheckInPast        = errors.New("check-in date cannot be in the past")
	ErrInvalidGuests      = errors.New("guest count must be at least 1")
	ErrTooManyGuests      = errors.New("guest count exceeds the listing's maximum")
	ErrListingUnavailable = errors.New("listing is not available for booking")
	ErrStayTooShort       = errors.New("stay is shorter than the listing's minimum")
	ErrStayTooLong        = errors.New("stay is longer than the listing's maximum")
	ErrOwnListing         = errors.New("hosts cannot book their own listing")
	ErrNotBookingOwner    = errors.New("booking does not belong to this user")
)

// Store is implemented by *booking_models.Repository.
type Store interface {
	CreateForListing(ctx context.Context, listingID uuid.UUID, build func(*listing_models.Listing) (*booking_models.Booking, error)) (*booking_models.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*booking_models.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]booking_models.Booking, int64, error)
	Cancel(ctx context.Context, id uuid.UUID) (*booking_models.Booking, error)
}

type UserLookup func(ctx context.Context, id uuid.UUID) (*user_models.User, error)

type Service struct {
	store      Store
	users      UserLookup
	dispatcher notification_service.Dispatcher
	now        func() time.Time
}

func NewService(store Store, users UserLookup, dispatcher notification_service.Dispatcher) *Service {
	return &Service{store: store, users: users, dispatcher: dispatcher, now: time.Now}
}

type CreateInput struct {
	ListingID       uuid.UUID
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	SpecialRequests string
}

// Create reserves a listing for userID. The booking is priced from the
// listing's nightly rate and stored pending until its payment settles.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*booking_models.Booking, error) {
	if err := booking_models.ValidateDates(in.CheckIn, in.CheckOut); err != nil {
		return nil, err
	}
	if booking_models.Date(in.CheckIn).Before(booking_models.Date(s.now())) {
		return nil, ErrCheckInPast
	}
	if in.Guests < 1 {
		return nil, ErrInvalidGuests
	}

	booking, err := s.store.CreateForListing(ctx, in.ListingID, func(l *listing_models.Listing) (*booking_models.Booking, error) {
		if err := checkListing(l, userID, in); err != nil {
			return nil, err
		}
		b, err := booking_models.NewBooking(l.ID, userID, in.CheckIn, in.CheckOut, in.Guests, l.PricePerNight)
		if err != nil {
			return nil, err
		}
		b.SpecialRequests = in.SpecialRequests
		return b, nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyReceived(ctx, booking)
	return booking, nil
}

func checkListing(l *listing_models.Listing, userID uuid.UUID, in CreateInput) error {
	if !l.Bookable() {
		return ErrListingUnavailable
	}
	if l.HostID == userID {
		return ErrOwnListing
	}
	if in.Guests > l.MaxGuests {
		return ErrTooManyGuests
	}
	nights := booking_models.Nights(in.CheckIn, in.CheckOut)
	if nights < l.MinimumStay {
		return fmt.Errorf("%w (%d nights)", ErrStayTooShort, l.MinimumStay)
	}
	if l.MaximumStay != nil && nights > *l.MaximumStay {
		return fmt.Errorf("%w (%d nights)", ErrStayTooLong, *l.MaximumStay)
	}
	return nil
}

func (s *Service) notifyReceived(ctx context.Context, b *booking_models.Booking) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notification_service.DispatchTimeout)
	defer cancel()

	user, err := s.users(ctx, b.UserID)
	if err != nil {
		logger.WarnLogger.Warnf("Booking %s created but guest lookup failed: %v", b.ID, err)
		return
	}

	event := notification_service.BookingReceived{
		BookingID:  b.ID,
		Email:      user.Email,
		Name:       user.DisplayFirstName(),
		CheckIn:    b.CheckInDate.Format(booking_models.DateLayout),
		CheckOut:   b.CheckOutDate.Format(booking_models.DateLayout),
		Guests:     b.Guests,
		TotalPrice: b.TotalPrice,
	}
	if b.Listing != nil {
		event.ListingTitle = b.Listing.Title
		event.Currency = b.Listing.Currency
	}
	if err := s.dispatcher.BookingReceived(ctx, event); err != nil {
		logger.ErrorLogger.Errorf("Failed to enqueue booking email for %s: %v", b.ID, err)
	}
}

// Get returns a booking visible to its guest only.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*booking_models.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrNotBookingOwner
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]booking_models.Booking, int64, error) {
	return s.store.ListByUser(ctx, userID, page, pageSize)
}

// Cancel cancels a booking of userID.
func (s *Service) Cancel(ctx context.Context, userID, id uuid.UUID) (*booking_models.Booking, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	b, err := s.store.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.InfoLogger.Infof("Booking %s cancelled by user %s", id, userID)
	return b, nil
}
