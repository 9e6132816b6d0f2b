package listing_controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/staybook/models/listing_models"
	"github.com/joy095/staybook/utils"
	"github.com/shopspring/decimal"
)

func (lc *ListingController) ListCategories(c *gin.Context) {
	categories, err := listing_models.ListCategories(c.Request.Context(), lc.DB)
	if err != nil {
		lc.handleError(c, err, "listing categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": categories})
}

type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

func (lc *ListingController) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidRequest.Error(), "details": err.Error()})
		return
	}
	category := &listing_models.Category{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := listing_models.CreateCategory(c.Request.Context(), lc.DB, category); err != nil {
		lc.handleError(c, err, "creating category")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

func (lc *ListingController) ListLocations(c *gin.Context) {
	locations, err := listing_models.ListLocations(c.Request.Context(), lc.DB, c.Query("country"))
	if err != nil {
		lc.handleError(c, err, "listing locations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": locations})
}

type LocationRequest struct {
	Name      string           `json:"name" binding:"required"`
	City      string           `json:"city" binding:"required"`
	State     string           `json:"state"`
	Country   string           `json:"country" binding:"required"`
	Latitude  *decimal.Decimal `json:"latitude"`
	Longitude *decimal.Decimal `json:"longitude"`
}

func (lc *ListingController) CreateLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidRequest.Error(), "details": err.Error()})
		return
	}
	location := &listing_models.Location{Name: req.Name, City: req.City, State: req.State, Country: req.Country}
	if req.Latitude != nil {
		location.Latitude = decimal.NewNullDecimal(*req.Latitude)
	}
	if req.Longitude != nil {
		location.Longitude = decimal.NewNullDecimal(*req.Longitude)
	}
	if err := listing_models.CreateLocation(c.Request.Context(), lc.DB, location); err != nil {
		lc.handleError(c, err, "creating location")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"location": location})
}

func (lc *ListingController) ListReviews(c *gin.Context) {
	id, err := uuid.Parse(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidListingID.Error()})
		return
	}
	reviews, err := listing_models.ListReviews(c.Request.Context(), lc.DB, id)
	if err != nil {
		lc.handleError(c, err, "listing reviews")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": reviews})
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content" binding:"required"`
}

func (lc *ListingController) CreateReview(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := uuid.Parse(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidListingID.Error()})
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidRequest.Error(), "details": err.Error()})
		return
	}
	if err := listing_models.ValidateRating(req.Rating); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if lc.Words.Contains(req.Title) || lc.Words.Contains(req.Content) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInappropriate.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := listing_models.GetListingByID(ctx, lc.DB, listingID); err != nil {
		lc.handleError(c, err, "fetching listing")
		return
	}
	review := &listing_models.Review{
		ListingID: listingID,
		UserID:    userID,
		Rating:    req.Rating,
		Title:     req.Title,
		Content:   req.Content,
	}
	if err := listing_models.CreateReview(ctx, lc.DB, review); err != nil {
		lc.handleError(c, err, "creating review")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func (lc *ListingController) ToggleFavorite(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	listingID, err := uuid.Parse(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidListingID.Error()})
		return
	}

	ctx := c.Request.Context()
	if _, err := listing_models.GetListingByID(ctx, lc.DB, listingID); err != nil {
		lc.handleError(c, err, "fetching listing")
		return
	}
	favorited, err := listing_models.ToggleFavorite(ctx, lc.DB, userID, listingID)
	if err != nil {
		lc.handleError(c, err, "toggling favorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": favorited})
}

func (lc *ListingController) MyFavorites(c *gin.Context) {
	userID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	favorites, err := listing_models.ListFavorites(c.Request.Context(), lc.DB, userID)
	if err != nil {
		lc.handleError(c, err, "listing favorites")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": favorites})
}
