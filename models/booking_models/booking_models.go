package booking_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/listing_models"
	"github.com/joy095/staybook/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// DateLayout is the wire format for check-in and check-out dates.
const DateLayout = "2006-01-02"

var (
	ErrBookingNotFound      = errors.New("booking not found")
	ErrInvalidDates         = errors.New("check-out date must be after check-in date")
	ErrDatesUnavailable     = errors.New("listing is already booked for the selected dates")
	ErrBookingNotCancelable = errors.New("booking cannot be cancelled in its current state")
	ErrBookingPaid          = errors.New("booking has a completed payment and cannot be cancelled")
)

// Booking is a reservation of a listing for a date range.
type Booking struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ListingID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_bookings_listing_dates" json:"listing_id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	CheckInDate     time.Time       `gorm:"type:date;not null;index:idx_bookings_listing_dates" json:"check_in_date"`
	CheckOutDate    time.Time       `gorm:"type:date;not null;index:idx_bookings_listing_dates" json:"check_out_date"`
	Guests          int             `gorm:"not null" json:"guests"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_price"`
	Status          BookingStatus   `gorm:"size:20;not null;default:pending;index" json:"status"`
	SpecialRequests string          `gorm:"type:text" json:"special_requests"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Listing *listing_models.Listing `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"listing,omitempty"`
}

// Date truncates t to a calendar date in UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ValidateDates enforces check-out strictly after check-in.
func ValidateDates(checkIn, checkOut time.Time) error {
	if !Date(checkOut).After(Date(checkIn)) {
		return ErrInvalidDates
	}
	return nil
}

// Nights is the number of nights between two calendar dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(Date(checkOut).Sub(Date(checkIn)).Hours() / 24)
}

func TotalPrice(nightly decimal.Decimal, nights int) decimal.Decimal {
	return nightly.Mul(decimal.NewFromInt(int64(nights)))
}

// NewBooking builds a pending booking with its total derived from the nightly price.
func NewBooking(listingID, userID uuid.UUID, checkIn, checkOut time.Time, guests int, nightly decimal.Decimal) (*Booking, error) {
	if err := ValidateDates(checkIn, checkOut); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for booking: %w", err)
	}
	return &Booking{
		ID:           id,
		ListingID:    listingID,
		UserID:       userID,
		CheckInDate:  Date(checkIn),
		CheckOutDate: Date(checkOut),
		Guests:       guests,
		TotalPrice:   TotalPrice(nightly, Nights(checkIn, checkOut)),
		Status:       StatusPending,
	}, nil
}

func (b *Booking) Nights() int { return Nights(b.CheckInDate, b.CheckOutDate) }

// Repository persists bookings through gorm.
type Repository struct {
	DB *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// CreateForListing locks the listing row, lets build validate against the
// locked listing and produce the booking, then inserts it if no pending or
// confirmed booking overlaps its dates. The lock serializes concurrent
// bookings of the same listing.
func (r *Repository) CreateForListing(ctx context.Context, listingID uuid.UUID, build func(*listing_models.Listing) (*Booking, error)) (*Booking, error) {
	var created *Booking
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing listing_models.Listing
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&listing, "id = ?", listingID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return listing_models.ErrListingNotFound
			}
			return fmt.Errorf("failed to lock listing %s: %w", listingID, err)
		}

		booking, err := build(&listing)
		if err != nil {
			return err
		}

		var overlapping int64
		err = tx.Model(&Booking{}).
			Where("listing_id = ? AND status IN ? AND check_in_date < ? AND check_out_date > ?",
				listingID, []BookingStatus{StatusPending, StatusConfirmed}, booking.CheckOutDate, booking.CheckInDate).
			Count(&overlapping).Error
		if err != nil {
			return fmt.Errorf("failed to check overlapping bookings: %w", err)
		}
		if overlapping > 0 {
			return ErrDatesUnavailable
		}

		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}
		booking.Listing = &listing
		created = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoLogger.Infof("Booking %s created for listing %s", created.ID, listingID)
	return created, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.DB.WithContext(ctx).Preload("Listing").First(&booking, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &booking, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Booking, int64, error) {
	q := r.DB.WithContext(ctx).Model(&Booking{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var bookings []Booking
	err := q.Preload("Listing").
		Order("created_at DESC").
		Offset(utils.Offset(page, pageSize)).
		Limit(pageSize).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}

// Cancel moves a pending or confirmed booking to cancelled. A booking whose
// payment already completed is refused, and a still-pending payment is
// cancelled alongside it.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&booking, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("failed to lock booking %s: %w", id, err)
		}

		if booking.Status != StatusPending && booking.Status != StatusConfirmed {
			return ErrBookingNotCancelable
		}

		var paid int64
		err = tx.Table("payments").Where("booking_id = ? AND status = ?", id, "completed").Count(&paid).Error
		if err != nil {
			return fmt.Errorf("failed to check booking payment: %w", err)
		}
		if paid > 0 {
			return ErrBookingPaid
		}

		err = tx.Exec(`UPDATE payments SET status = 'cancelled', updated_at = NOW() WHERE booking_id = ? AND status = 'pending'`, id).Error
		if err != nil {
			return fmt.Errorf("failed to cancel pending payment: %w", err)
		}

		booking.Status = StatusCancelled
		return tx.Model(&booking).Update("status", StatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
