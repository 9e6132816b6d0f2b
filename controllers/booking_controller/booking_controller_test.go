package booking_controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/booking_models"
	"github.com/joy095/staybook/services/booking_service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLoggers()
}

type stubBookings struct {
	create    func(in booking_service.CreateInput) (*booking_models.Booking, error)
	get       func(id uuid.UUID) (*booking_models.Booking, error)
	cancelErr error
	list      []booking_models.Booking
}

func (s *stubBookings) Create(_ context.Context, _ uuid.UUID, in booking_service.CreateInput) (*booking_models.Booking, error) {
	return s.create(in)
}

func (s *stubBookings) Get(_ context.Context, _ uuid.UUID, id uuid.UUID) (*booking_models.Booking, error) {
	return s.get(id)
}

func (s *stubBookings) List(context.Context, uuid.UUID, int, int) ([]booking_models.Booking, int64, error) {
	return s.list, int64(len(s.list)), nil
}

func (s *stubBookings) Cancel(_ context.Context, _ uuid.UUID, id uuid.UUID) (*booking_models.Booking, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &booking_models.Booking{ID: id, Status: booking_models.StatusCancelled}, nil
}

func newRouter(b Bookings) *gin.Engine {
	bc := NewBookingController(b)
	r := gin.New()
	g := r.Group("/api/bookings", func(c *gin.Context) {
		c.Set("user_id", "0190a3c4-1111-7000-8000-000000000001")
		c.Next()
	})
	g.POST("", bc.CreateBooking)
	g.GET("", bc.ListMyBookings)
	g.GET("/:booking_id", bc.GetBooking)
	g.POST("/:booking_id/cancel", bc.CancelBooking)
	return r
}

func serve(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestCreateBooking(t *testing.T) {
	listingID := uuid.New()
	stub := &stubBookings{
		create: func(in booking_service.CreateInput) (*booking_models.Booking, error) {
			assert.Equal(t, listingID, in.ListingID)
			assert.Equal(t, "2026-11-01", in.CheckIn.Format(booking_models.DateLayout))
			assert.Equal(t, 2, in.Guests)
			return booking_models.NewBooking(in.ListingID, uuid.New(), in.CheckIn, in.CheckOut, in.Guests, decimal.NewFromInt(100))
		},
	}

	w, body := serve(newRouter(stub), http.MethodPost, "/api/bookings",
		`{"listing_id":"`+listingID.String()+`","check_in_date":"2026-11-01","check_out_date":"2026-11-03","guests":2}`)
	require.Equal(t, http.StatusCreated, w.Code)
	booking := body["booking"].(map[string]interface{})
	assert.Equal(t, "200", booking["total_price"])
	assert.Equal(t, "pending", booking["status"])
}

func TestCreateBookingErrors(t *testing.T) {
	valid := `{"listing_id":"` + uuid.NewString() + `","check_in_date":"2026-11-01","check_out_date":"2026-11-03","guests":2}`
	tests := []struct {
		name string
		body string
		err  error
		code int
	}{
		{"missing fields", `{}`, nil, http.StatusBadRequest},
		{"bad listing id", `{"listing_id":"x","check_in_date":"2026-11-01","check_out_date":"2026-11-03","guests":1}`, nil, http.StatusBadRequest},
		{"bad date", `{"listing_id":"` + uuid.NewString() + `","check_in_date":"11/01/2026","check_out_date":"2026-11-03","guests":1}`, nil, http.StatusBadRequest},
		{"overlap", valid, booking_models.ErrDatesUnavailable, http.StatusConflict},
		{"invalid dates", valid, booking_models.ErrInvalidDates, http.StatusBadRequest},
		{"too many guests", valid, booking_service.ErrTooManyGuests, http.StatusBadRequest},
		{"unknown listing", valid, booking_models.ErrBookingNotFound, http.StatusNotFound},
		{"internal", valid, assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubBookings{create: func(booking_service.CreateInput) (*booking_models.Booking, error) {
				return nil, tt.err
			}}
			w, _ := serve(newRouter(stub), http.MethodPost, "/api/bookings", tt.body)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestGetAndCancelBooking(t *testing.T) {
	id := uuid.New()
	stub := &stubBookings{get: func(got uuid.UUID) (*booking_models.Booking, error) {
		if got != id {
			return nil, booking_service.ErrNotBookingOwner
		}
		return &booking_models.Booking{ID: id, Status: booking_models.StatusPending}, nil
	}}
	r := newRouter(stub)

	w, _ := serve(r, http.MethodGet, "/api/bookings/"+id.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = serve(r, http.MethodGet, "/api/bookings/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := serve(r, http.MethodPost, "/api/bookings/"+id.String()+"/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Booking cancelled", body["message"])

	stub.cancelErr = booking_models.ErrBookingPaid
	w, _ = serve(r, http.MethodPost, "/api/bookings/"+id.String()+"/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListMyBookingsEmpty(t *testing.T) {
	w, body := serve(newRouter(&stubBookings{}), http.MethodGet, "/api/bookings?page=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, body["results"])
	assert.EqualValues(t, 2, body["page"])
}
