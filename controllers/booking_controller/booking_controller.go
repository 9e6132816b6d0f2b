package booking_controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/booking_models"
	"github.com/joy095/staybook/models/listing_models"
	"github.com/joy095/staybook/services/booking_service"
	"github.com/joy095/staybook/utils"
)

// Bookings is implemented by *booking_service.Service.
type Bookings interface {
	Create(ctx context.Context, userID uuid.UUID, in booking_service.CreateInput) (*booking_models.Booking, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*booking_models.Booking, error)
	List(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]booking_models.Booking, int64, error)
	Cancel(ctx context.Context, userID, id uuid.UUID) (*booking_models.Booking, error)
}

type BookingController struct {
	bookings Bookings
}

func NewBookingController(bookings Bookings) *BookingController {
	return &BookingController{bookings: bookings}
}

type CreateBookingRequest struct {
	ListingID       string `json:"listing_id" binding:"required"`
	CheckInDate     string `json:"check_in_date" binding:"required"`
	CheckOutDate    string `json:"check_out_date" binding:"required"`
	Guests          int    `json:"guests" binding:"required"`
	SpecialRequests string `json:"special_requests"`
}

func (bc *BookingController) CreateBooking(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidRequest.Error(), "details": err.Error()})
		return
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidListingID.Error()})
		return
	}
	checkIn, err := booking_models.ParseDate(req.CheckInDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checkOut, err := booking_models.ParseDate(req.CheckOutDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := bc.bookings.Create(c.Request.Context(), userID, booking_service.CreateInput{
		ListingID:       listingID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		handleError(c, err, "creating booking")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

func (bc *BookingController) ListMyBookings(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	page, size := utils.ParsePagination(c.Query("page"), c.Query("page_size"))

	bookings, total, err := bc.bookings.List(c.Request.Context(), userID, page, size)
	if err != nil {
		handleError(c, err, "listing bookings")
		return
	}
	if bookings == nil {
		bookings = []booking_models.Booking{}
	}

	c.JSON(http.StatusOK, gin.H{
		"results":   bookings,
		"count":     total,
		"page":      page,
		"page_size": size,
	})
}

func (bc *BookingController) GetBooking(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidBookingID.Error()})
		return
	}

	booking, err := bc.bookings.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, err, "fetching booking")
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func (bc *BookingController) CancelBooking(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidBookingID.Error()})
		return
	}

	booking, err := bc.bookings.Cancel(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, err, "cancelling booking")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled", "booking": booking})
}

func handleError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, booking_models.ErrBookingNotFound),
		errors.Is(err, listing_models.ErrListingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, booking_service.ErrNotBookingOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	case errors.Is(err, booking_models.ErrDatesUnavailable),
		errors.Is(err, booking_models.ErrBookingPaid),
		errors.Is(err, booking_models.ErrBookingNotCancelable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, booking_models.ErrInvalidDates),
		errors.Is(err, booking_service.ErrCheckInPast),
		errors.Is(err, booking_service.ErrInvalidGuests),
		errors.Is(err, booking_service.ErrTooManyGuests),
		errors.Is(err, booking_service.ErrListingUnavailable),
		errors.Is(err, booking_service.ErrStayTooShort),
		errors.Is(err, booking_service.ErrStayTooLong),
		errors.Is(err, booking_service.ErrOwnListing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.ErrorLogger.Errorf("Error %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
