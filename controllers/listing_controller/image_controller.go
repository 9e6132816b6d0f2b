package listing_controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/staybook/handlers/image_handlers"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/models/listing_models"
	"github.com/joy095/staybook/utils"
)

// ownedListing loads the listing named in the path and checks that the caller
// hosts it. It writes the error response itself.
func (lc *ListingController) ownedListing(c *gin.Context) (*listing_models.Listing, bool) {
	hostID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return nil, false
	}
	id, err := uuid.Parse(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidListingID.Error()})
		return nil, false
	}
	listing, err := listing_models.GetListingByID(c.Request.Context(), lc.DB, id)
	if err != nil {
		lc.handleError(c, err, "fetching listing")
		return nil, false
	}
	if listing.HostID != hostID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return listing, true
}

func (lc *ListingController) UploadListingImage(c *gin.Context) {
	if lc.Images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not configured"})
		return
	}
	fileHeader, err := image_handlers.FormImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	listing, ok := lc.ownedListing(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	uploaded, err := lc.Images.Upload(ctx, fileHeader, c.GetHeader("Authorization"))
	if err != nil {
		logger.ErrorLogger.Errorf("Image upload for listing %s failed: %v", listing.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to store image"})
		return
	}

	img := &listing_models.ListingImage{
		ListingID: listing.ID,
		StoredID:  uploaded.ImageID,
		ImageURL:  uploaded.URL,
		Caption:   c.PostForm("caption"),
	}
	if err := listing_models.AddListingImage(ctx, lc.DB, img); err != nil {
		if delErr := lc.Images.Delete(ctx, uploaded.ImageID, c.GetHeader("Authorization")); delErr != nil {
			logger.WarnLogger.Warnf("Orphaned image %s: %v", uploaded.ImageID, delErr)
		}
		lc.handleError(c, err, "adding listing image")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"image": img})
}

func (lc *ListingController) DeleteListingImage(c *gin.Context) {
	imageID, err := uuid.Parse(c.Param("image_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image ID"})
		return
	}
	listing, ok := lc.ownedListing(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	img, err := listing_models.DeleteListingImage(ctx, lc.DB, listing.ID, imageID)
	if err != nil {
		if errors.Is(err, listing_models.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		lc.handleError(c, err, "deleting listing image")
		return
	}
	if lc.Images != nil && img.StoredID != uuid.Nil {
		if err := lc.Images.Delete(ctx, img.StoredID, c.GetHeader("Authorization")); err != nil {
			logger.WarnLogger.Warnf("Image %s removed from listing but not from storage: %v", img.StoredID, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}
