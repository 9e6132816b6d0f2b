package listing_controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/staybook/badwords"
	"github.com/joy095/staybook/handlers/image_handlers"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/listing_models"
	"github.com/joy095/staybook/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListingController serves the public catalog and host listing management.
type ListingController struct {
	DB     *gorm.DB
	Words  *badwords.Filter
	Images *image_handlers.ImageService
}

func NewListingController(db *gorm.DB, words *badwords.Filter, images *image_handlers.ImageService) *ListingController {
	return &ListingController{DB: db, Words: words, Images: images}
}

// parseFilter reads catalog search parameters from the query string.
func parseFilter(c *gin.Context) (listing_models.ListingFilter, error) {
	f := listing_models.ListingFilter{
		Query:    strings.TrimSpace(c.Query("search")),
		Category: c.Query("category"),
		City:     c.Query("city"),
		Country:  c.Query("country"),
		Sort:     c.Query("ordering"),
	}
	f.Page, f.PageSize = utils.ParsePagination(c.Query("page"), c.Query("page_size"))

	if t := c.Query("listing_type"); t != "" {
		f.Type = listing_models.ListingType(t)
		if !f.Type.Valid() {
			return f, ErrInvalidType
		}
	}
	for _, p := range []struct {
		key string
		dst **decimal.Decimal
	}{{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice}} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			return f, ErrInvalidPrice
		}
		*p.dst = &d
	}
	if g := c.Query("guests"); g != "" {
		n, err := strconv.Atoi(g)
		if err != nil || n < 0 {
			return f, ErrInvalidRequest
		}
		f.Guests = n
	}
	for _, a := range strings.Split(c.Query("amenities"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			f.Amenities = append(f.Amenities, a)
		}
	}
	return f, nil
}

func (lc *ListingController) SearchListings(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listings, total, err := listing_models.SearchListings(c.Request.Context(), lc.DB, filter)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to search listings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if listings == nil {
		listings = []listing_models.Listing{}
	}

	c.JSON(http.StatusOK, gin.H{
		"results":   listings,
		"count":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (lc *ListingController) GetListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidListingID.Error()})
		return
	}

	ctx := c.Request.Context()
	listing, err := listing_models.GetListingByID(ctx, lc.DB, id)
	if err != nil {
		lc.handleError(c, err, "fetching listing")
		return
	}
	if err := listing_models.IncrementViewCount(ctx, lc.DB, id); err != nil {
		logger.WarnLogger.Warnf("Failed to increment view count for listing %s: %v", id, err)
	}
	rating, err := listing_models.GetRatingSummary(ctx, lc.DB, id)
	if err != nil {
		logger.WarnLogger.Warnf("Failed to load rating summary for listing %s: %v", id, err)
	}

	c.JSON(http.StatusOK, gin.H{"listing": listing, "rating": rating})
}

type ListingRequest struct {
	Title         string                       `json:"title" binding:"required,max=200"`
	Description   string                       `json:"description" binding:"required"`
	ListingType   listing_models.ListingType   `json:"listing_type" binding:"required"`
	Status        listing_models.ListingStatus `json:"status"`
	CategoryID    uuid.UUID                    `json:"category_id" binding:"required"`
	LocationID    uuid.UUID                    `json:"location_id" binding:"required"`
	PricePerNight decimal.Decimal              `json:"price_per_night"`
	Currency      string                       `json:"currency"`
	MaxGuests     int                          `json:"max_guests"`
	Bedrooms      int                          `json:"bedrooms"`
	Bathrooms     int                          `json:"bathrooms"`
	Amenities     []string                     `json:"amenities"`
	HouseRules    string                       `json:"house_rules"`
	IsAvailable   *bool                        `json:"is_available"`
	MinimumStay   int                          `json:"minimum_stay"`
	MaximumStay   *int                         `json:"maximum_stay"`
	MainImage     string                       `json:"main_image"`
	Images        []ImageRequest               `json:"images"`
}

type ImageRequest struct {
	ImageURL string `json:"image_url" binding:"required"`
	Caption  string `json:"caption"`
	Order    int    `json:"order"`
}

// toListing applies request defaults and returns the listing to store.
func (r *ListingRequest) toListing(hostID uuid.UUID) *listing_models.Listing {
	l := &listing_models.Listing{
		Title:         strings.TrimSpace(r.Title),
		Description:   r.Description,
		ListingType:   r.ListingType,
		Status:        r.Status,
		HostID:        hostID,
		CategoryID:    r.CategoryID,
		LocationID:    r.LocationID,
		PricePerNight: r.PricePerNight,
		Currency:      strings.ToUpper(r.Currency),
		MaxGuests:     r.MaxGuests,
		Bedrooms:      r.Bedrooms,
		Bathrooms:     r.Bathrooms,
		Amenities:     strings.Join(r.Amenities, ","),
		HouseRules:    r.HouseRules,
		IsAvailable:   true,
		MinimumStay:   r.MinimumStay,
		MaximumStay:   r.MaximumStay,
		MainImage:     r.MainImage,
	}
	if l.Status == "" {
		l.Status = listing_models.StatusDraft
	}
	if l.Currency == "" {
		l.Currency = "USD"
	}
	if l.MaxGuests == 0 {
		l.MaxGuests = 1
	}
	if l.MinimumStay == 0 {
		l.MinimumStay = 1
	}
	if r.IsAvailable != nil {
		l.IsAvailable = *r.IsAvailable
	}
	for _, img := range r.Images {
		l.Images = append(l.Images, listing_models.ListingImage{
			ImageURL: img.ImageURL,
			Caption:  img.Caption,
			Order:    img.Order,
		})
	}
	return l
}

func (lc *ListingController) bindListing(c *gin.Context) (*listing_models.Listing, bool) {
	hostID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return nil, false
	}
	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidRequest.Error(), "details": err.Error()})
		return nil, false
	}
	listing := req.toListing(hostID)
	if err := listing.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if lc.Words.Contains(listing.Title) || lc.Words.Contains(listing.Description) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInappropriate.Error()})
		return nil, false
	}

	ctx := c.Request.Context()
	if err := listing_models.CategoryExists(ctx, lc.DB, listing.CategoryID); err != nil {
		lc.handleError(c, err, "checking category")
		return nil, false
	}
	if err := listing_models.LocationExists(ctx, lc.DB, listing.LocationID); err != nil {
		lc.handleError(c, err, "checking location")
		return nil, false
	}
	return listing, true
}

func (lc *ListingController) CreateListing(c *gin.Context) {
	listing, ok := lc.bindListing(c)
	if !ok {
		return
	}
	if err := listing_models.CreateListing(c.Request.Context(), lc.DB, listing); err != nil {
		lc.handleError(c, err, "creating listing")
		return
	}
	logger.InfoLogger.Infof("Listing %s created by host %s", listing.ID, listing.HostID)
	c.JSON(http.StatusCreated, gin.H{"listing": listing})
}

func (lc *ListingController) UpdateListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidListingID.Error()})
		return
	}
	listing, ok := lc.bindListing(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	existing, err := listing_models.GetListingByID(ctx, lc.DB, id)
	if err != nil {
		lc.handleError(c, err, "fetching listing")
		return
	}
	if existing.HostID != listing.HostID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}

	listing.ID = id
	if err := listing_models.UpdateListing(ctx, lc.DB, listing); err != nil {
		lc.handleError(c, err, "updating listing")
		return
	}
	updated, err := listing_models.GetListingByID(ctx, lc.DB, id)
	if err != nil {
		lc.handleError(c, err, "fetching listing")
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": updated})
}

func (lc *ListingController) DeleteListing(c *gin.Context) {
	hostID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	id, err := uuid.Parse(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidListingID.Error()})
		return
	}
	if err := listing_models.DeleteListing(c.Request.Context(), lc.DB, id, hostID); err != nil {
		lc.handleError(c, err, "deleting listing")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted"})
}

func (lc *ListingController) MyListings(c *gin.Context) {
	hostID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	page, size := utils.ParsePagination(c.Query("page"), c.Query("page_size"))

	listings, total, err := listing_models.ListingsByHost(c.Request.Context(), lc.DB, hostID, page, size)
	if err != nil {
		lc.handleError(c, err, "listing host listings")
		return
	}
	if listings == nil {
		listings = []listing_models.Listing{}
	}
	c.JSON(http.StatusOK, gin.H{"results": listings, "count": total, "page": page, "page_size": size})
}

func (lc *ListingController) handleError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, listing_models.ErrListingNotFound),
		errors.Is(err, listing_models.ErrCategoryNotFound),
		errors.Is(err, listing_models.ErrLocationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, listing_models.ErrInvalidListing),
		errors.Is(err, listing_models.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, listing_models.ErrAlreadyReviewed),
		errors.Is(err, listing_models.ErrDuplicateCategory):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.ErrorLogger.Errorf("Error %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
