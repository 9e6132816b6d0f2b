package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/staybook/controllers/listing_controller"
	middleware "github.com/joy095/staybook/middlewares"
	"github.com/joy095/staybook/middlewares/auth"
)

func RegisterListingRoutes(router *gin.Engine, deps Deps) {
	listingController := listing_controller.NewListingController(deps.DB, deps.Words, deps.Images)
	cache := middleware.ResponseCache(deps.Config.Cache, deps.Redis)
	requireAuth := auth.AuthMiddleware(deps.Config.JWTSecret)

	// Public catalog
	router.GET("/api/listings", cache, listingController.SearchListings)
	router.GET("/api/listings/:listing_id", listingController.GetListing)
	router.GET("/api/listings/:listing_id/reviews", listingController.ListReviews)
	router.GET("/api/categories", cache, listingController.ListCategories)
	router.GET("/api/locations", cache, listingController.ListLocations)

	host := router.Group("/api")
	host.Use(requireAuth)
	{
		host.GET("/my-listings", listingController.MyListings)
		host.POST("/listings", listingController.CreateListing)
		host.PUT("/listings/:listing_id", listingController.UpdateListing)
		host.DELETE("/listings/:listing_id", listingController.DeleteListing)
		host.POST("/listings/:listing_id/images", listingController.UploadListingImage)
		host.DELETE("/listings/:listing_id/images/:image_id", listingController.DeleteListingImage)

		host.POST("/listings/:listing_id/reviews", listingController.CreateReview)
		host.POST("/listings/:listing_id/favorite", listingController.ToggleFavorite)
		host.GET("/my-favorites", listingController.MyFavorites)

		host.POST("/categories", listingController.CreateCategory)
		host.POST("/locations", listingController.CreateLocation)
	}
}
