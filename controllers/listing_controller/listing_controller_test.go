package listing_controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/staybook/badwords"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/listing_models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLoggers()
}

func contextFor(rawQuery string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/api/listings?"+rawQuery, nil)
	return c
}

func TestParseFilter(t *testing.T) {
	f, err := parseFilter(contextFor("search=+beach+&city=Lisbon&listing_type=villa&min_price=50&max_price=250.5&guests=3&amenities=wifi,+pool,,&ordering=price&page=2&page_size=5"))
	require.NoError(t, err)

	assert.Equal(t, "beach", f.Query)
	assert.Equal(t, "Lisbon", f.City)
	assert.Equal(t, listing_models.TypeVilla, f.Type)
	require.NotNil(t, f.MinPrice)
	require.NotNil(t, f.MaxPrice)
	assert.Equal(t, "50", f.MinPrice.String())
	assert.Equal(t, "250.5", f.MaxPrice.String())
	assert.Equal(t, 3, f.Guests)
	assert.Equal(t, []string{"wifi", "pool"}, f.Amenities)
	assert.Equal(t, "price", f.Sort)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 5, f.PageSize)
}

func TestParseFilterRejects(t *testing.T) {
	tests := []struct {
		query string
		err   error
	}{
		{"listing_type=castle", ErrInvalidType},
		{"min_price=abc", ErrInvalidPrice},
		{"max_price=-1", ErrInvalidPrice},
		{"guests=many", ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := parseFilter(contextFor(tt.query))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestListingRequestDefaults(t *testing.T) {
	host := uuid.New()
	req := ListingRequest{
		Title:       "  Sea view loft ",
		ListingType: listing_models.TypeApartment,
		Currency:    "eur",
		Amenities:   []string{"wifi", "kitchen"},
		Images:      []ImageRequest{{ImageURL: "https://img.example.com/1.jpg", Order: 1}},
	}
	l := req.toListing(host)

	assert.Equal(t, "Sea view loft", l.Title)
	assert.Equal(t, host, l.HostID)
	assert.Equal(t, listing_models.StatusDraft, l.Status)
	assert.Equal(t, "EUR", l.Currency)
	assert.Equal(t, 1, l.MaxGuests)
	assert.Equal(t, 1, l.MinimumStay)
	assert.True(t, l.IsAvailable)
	assert.Equal(t, "wifi,kitchen", l.Amenities)
	require.Len(t, l.Images, 1)
}

func newRouter(userID string) *gin.Engine {
	lc := NewListingController(nil, badwords.New("darn"), nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
	})
	r.GET("/api/listings", lc.SearchListings)
	r.GET("/api/listings/:listing_id", lc.GetListing)
	r.POST("/api/listings", lc.CreateListing)
	r.DELETE("/api/listings/:listing_id", lc.DeleteListing)
	r.POST("/api/listings/:listing_id/reviews", lc.CreateReview)
	r.POST("/api/listings/:listing_id/favorite", lc.ToggleFavorite)
	r.POST("/api/listings/:listing_id/images", lc.UploadListingImage)
	r.DELETE("/api/listings/:listing_id/images/:image_id", lc.DeleteListingImage)
	return r
}

// Every case below is rejected before the controller touches the database.
func TestRequestValidation(t *testing.T) {
	user := uuid.NewString()
	listing := uuid.NewString()
	tests := []struct {
		name   string
		user   string
		method string
		path   string
		body   string
		code   int
	}{
		{"bad search filter", user, http.MethodGet, "/api/listings?min_price=x", "", http.StatusBadRequest},
		{"bad listing id", user, http.MethodGet, "/api/listings/not-a-uuid", "", http.StatusBadRequest},
		{"create unauthenticated", "", http.MethodPost, "/api/listings", `{}`, http.StatusUnauthorized},
		{"create missing fields", user, http.MethodPost, "/api/listings", `{"title":"x"}`, http.StatusBadRequest},
		{"create zero price", user, http.MethodPost, "/api/listings",
			`{"title":"Loft","description":"d","listing_type":"house","category_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `","price_per_night":"0"}`,
			http.StatusBadRequest},
		{"create unknown type", user, http.MethodPost, "/api/listings",
			`{"title":"Loft","description":"d","listing_type":"castle","category_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `","price_per_night":"90"}`,
			http.StatusBadRequest},
		{"delete unauthenticated", "", http.MethodDelete, "/api/listings/" + listing, "", http.StatusUnauthorized},
		{"review rating out of range", user, http.MethodPost, "/api/listings/" + listing + "/reviews", `{"rating":6,"title":"t","content":"c"}`, http.StatusBadRequest},
		{"review with bad word", user, http.MethodPost, "/api/listings/" + listing + "/reviews", `{"rating":4,"title":"Darn noisy","content":"c"}`, http.StatusBadRequest},
		{"listing with bad word", user, http.MethodPost, "/api/listings",
			`{"title":"Darn loft","description":"d","listing_type":"house","category_id":"` + uuid.NewString() + `","location_id":"` + uuid.NewString() + `","price_per_night":"90"}`,
			http.StatusBadRequest},
		{"upload without image service", user, http.MethodPost, "/api/listings/" + listing + "/images", "", http.StatusServiceUnavailable},
		{"delete image bad id", user, http.MethodDelete, "/api/listings/" + listing + "/images/x", "", http.StatusBadRequest},
		{"favorite bad id", user, http.MethodPost, "/api/listings/x/favorite", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			newRouter(tt.user).ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
