package booking_service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/booking_models"
	"github.com/joy095/staybook/models/listing_models"
	"github.com/joy095/staybook/models/user_models"
	"github.com/joy095/staybook/services/notification_service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLoggers()
}

// ledger keeps bookings in memory and applies the same overlap rule as the
// repository.
type ledger struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*listing_models.Listing
	bookings map[uuid.UUID]*booking_models.Booking
}

func (l *ledger) CreateForListing(_ context.Context, listingID uuid.UUID, build func(*listing_models.Listing) (*booking_models.Booking, error)) (*booking_models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	listing, ok := l.listings[listingID]
	if !ok {
		return nil, listing_models.ErrListingNotFound
	}
	b, err := build(listing)
	if err != nil {
		return nil, err
	}
	for _, other := range l.bookings {
		active := other.Status == booking_models.StatusPending || other.Status == booking_models.StatusConfirmed
		if other.ListingID == listingID && active &&
			other.CheckInDate.Before(b.CheckOutDate) && other.CheckOutDate.After(b.CheckInDate) {
			return nil, booking_models.ErrDatesUnavailable
		}
	}
	b.Listing = listing
	l.bookings[b.ID] = b
	return b, nil
}

func (l *ledger) GetByID(_ context.Context, id uuid.UUID) (*booking_models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[id]
	if !ok {
		return nil, booking_models.ErrBookingNotFound
	}
	return b, nil
}

func (l *ledger) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]booking_models.Booking, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []booking_models.Booking
	for _, b := range l.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, int64(len(out)), nil
}

func (l *ledger) Cancel(_ context.Context, id uuid.UUID) (*booking_models.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[id]
	if !ok {
		return nil, booking_models.ErrBookingNotFound
	}
	if b.Status != booking_models.StatusPending && b.Status != booking_models.StatusConfirmed {
		return nil, booking_models.ErrBookingNotCancelable
	}
	b.Status = booking_models.StatusCancelled
	return b, nil
}

type bookingEvents struct {
	mu     sync.Mutex
	events []notification_service.BookingReceived
}

func (d *bookingEvents) PaymentConfirmed(context.Context, notification_service.PaymentConfirmed) error {
	return nil
}

func (d *bookingEvents) BookingReceived(_ context.Context, e notification_service.BookingReceived) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
	return nil
}

type bookingFixture struct {
	svc     *Service
	ledger  *ledger
	events  *bookingEvents
	listing *listing_models.Listing
	guest   uuid.UUID
	today   time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	maxStay := 14
	listing := &listing_models.Listing{
		ID:            uuid.New(),
		Title:         "Lakeside Cabin",
		Status:        listing_models.StatusPublished,
		IsAvailable:   true,
		HostID:        uuid.New(),
		PricePerNight: decimal.NewFromInt(100),
		Currency:      "USD",
		MaxGuests:     4,
		MinimumStay:   2,
		MaximumStay:   &maxStay,
	}
	f := &bookingFixture{
		ledger: &ledger{
			listings: map[uuid.UUID]*listing_models.Listing{listing.ID: listing},
			bookings: map[uuid.UUID]*booking_models.Booking{},
		},
		events:  &bookingEvents{},
		listing: listing,
		guest:   uuid.New(),
		today:   time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC),
	}
	users := func(_ context.Context, id uuid.UUID) (*user_models.User, error) {
		if id != f.guest {
			return nil, user_models.ErrUserNotFound
		}
		return &user_models.User{ID: id, Username: "abebe", Email: "guest@example.com"}, nil
	}
	f.svc = NewService(f.ledger, users, f.events)
	f.svc.now = func() time.Time { return f.today }
	return f
}

func (f *bookingFixture) input(checkInOffset, nights, guests int) CreateInput {
	in := booking_models.Date(f.today).AddDate(0, 0, checkInOffset)
	return CreateInput{
		ListingID: f.listing.ID,
		CheckIn:   in,
		CheckOut:  in.AddDate(0, 0, nights),
		Guests:    guests,
	}
}

func TestCreateBookingPricesNights(t *testing.T) {
	f := newBookingFixture(t)

	b, err := f.svc.Create(context.Background(), f.guest, f.input(3, 2, 2))
	require.NoError(t, err)

	assert.Equal(t, booking_models.StatusPending, b.Status)
	assert.True(t, decimal.NewFromInt(200).Equal(b.TotalPrice))
	assert.Equal(t, 2, b.Nights())

	require.Len(t, f.events.events, 1)
	event := f.events.events[0]
	assert.Equal(t, "guest@example.com", event.Email)
	assert.Equal(t, "abebe", event.Name)
	assert.Equal(t, "Lakeside Cabin", event.ListingTitle)
	assert.Equal(t, b.CheckInDate.Format(booking_models.DateLayout), event.CheckIn)
}

func TestCreateBookingValidation(t *testing.T) {
	tests := []struct {
		name  string
		input func(f *bookingFixture) CreateInput
		want  error
	}{
		{"checkout before checkin", func(f *bookingFixture) CreateInput { return f.input(3, -1, 1) }, booking_models.ErrInvalidDates},
		{"same day", func(f *bookingFixture) CreateInput { return f.input(3, 0, 1) }, booking_models.ErrInvalidDates},
		{"past check-in", func(f *bookingFixture) CreateInput { return f.input(-1, 3, 1) }, ErrCheckInPast},
		{"no guests", func(f *bookingFixture) CreateInput { return f.input(3, 2, 0) }, ErrInvalidGuests},
		{"too many guests", func(f *bookingFixture) CreateInput { return f.input(3, 2, 5) }, ErrTooManyGuests},
		{"below minimum stay", func(f *bookingFixture) CreateInput { return f.input(3, 1, 1) }, ErrStayTooShort},
		{"above maximum stay", func(f *bookingFixture) CreateInput { return f.input(3, 15, 1) }, ErrStayTooLong},
		{"unknown listing", func(f *bookingFixture) CreateInput {
			in := f.input(3, 2, 1)
			in.ListingID = uuid.New()
			return in
		}, listing_models.ErrListingNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture(t)
			_, err := f.svc.Create(context.Background(), f.guest, tt.input(f))
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.ledger.bookings)
		})
	}
}

func TestCreateBookingTodayIsAllowed(t *testing.T) {
	f := newBookingFixture(t)
	_, err := f.svc.Create(context.Background(), f.guest, f.input(0, 2, 1))
	assert.NoError(t, err)
}

func TestCreateBookingRejectsUnavailableListing(t *testing.T) {
	f := newBookingFixture(t)
	f.listing.IsAvailable = false
	_, err := f.svc.Create(context.Background(), f.guest, f.input(3, 2, 1))
	assert.ErrorIs(t, err, ErrListingUnavailable)

	f.listing.IsAvailable = true
	_, err = f.svc.Create(context.Background(), f.listing.HostID, f.input(3, 2, 1))
	assert.ErrorIs(t, err, ErrOwnListing)
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	f := newBookingFixture(t)
	_, err := f.svc.Create(context.Background(), f.guest, f.input(3, 4, 1))
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), uuid.New(), f.input(5, 3, 1))
	assert.ErrorIs(t, err, booking_models.ErrDatesUnavailable)

	// Back-to-back stays share the changeover day.
	_, err = f.svc.Create(context.Background(), f.guest, f.input(7, 2, 1))
	assert.NoError(t, err)
}

func TestCancelledBookingFreesDates(t *testing.T) {
	f := newBookingFixture(t)
	b, err := f.svc.Create(context.Background(), f.guest, f.input(3, 2, 1))
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.guest, b.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.guest, f.input(3, 2, 1))
	assert.NoError(t, err)
}

func TestBookingOwnership(t *testing.T) {
	f := newBookingFixture(t)
	b, err := f.svc.Create(context.Background(), f.guest, f.input(3, 2, 1))
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), uuid.New(), b.ID)
	assert.ErrorIs(t, err, ErrNotBookingOwner)

	_, err = f.svc.Cancel(context.Background(), uuid.New(), b.ID)
	assert.ErrorIs(t, err, ErrNotBookingOwner)
	assert.Equal(t, booking_models.StatusPending, b.Status)

	got, err := f.svc.Get(context.Background(), f.guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = f.svc.Get(context.Background(), f.guest, uuid.New())
	assert.True(t, errors.Is(err, booking_models.ErrBookingNotFound))
}

// handoffDeadline records the context a notification is enqueued with.
type handoffDeadline struct {
	bookingEvents
	deadline    time.Time
	hasDeadline bool
	err         error
}

func (d *handoffDeadline) BookingReceived(ctx context.Context, e notification_service.BookingReceived) error {
	d.deadline, d.hasDeadline = ctx.Deadline()
	d.err = ctx.Err()
	return d.bookingEvents.BookingReceived(ctx, e)
}

func TestBookingNotificationIsBounded(t *testing.T) {
	f := newBookingFixture(t)
	d := &handoffDeadline{}
	f.svc.dispatcher = d

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	_, err := f.svc.Create(ctx, f.guest, f.input(3, 2, 2))
	require.NoError(t, err)

	require.Len(t, d.events, 1)
	assert.NoError(t, d.err, "a finished request must not cancel the hand-off")
	require.True(t, d.hasDeadline)
	assert.WithinDuration(t, start.Add(notification_service.DispatchTimeout), d.deadline, time.Second)
}
