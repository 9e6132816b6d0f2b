package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/staybook/controllers/booking_controller"
	middleware "github.com/joy095/staybook/middlewares"
	"github.com/joy095/staybook/middlewares/auth"
)

func RegisterBookingRoutes(router *gin.Engine, deps Deps, bookings booking_controller.Bookings) {
	bookingController := booking_controller.NewBookingController(bookings)

	protected := router.Group("/api/bookings")
	protected.Use(auth.AuthMiddleware(deps.Config.JWTSecret))
	{
		protected.POST("",
			middleware.NewRateLimiter(deps.Redis, deps.Config.RateLimit.Booking, "booking-create", middleware.KeyByUser),
			bookingController.CreateBooking)
		protected.GET("", bookingController.ListMyBookings)
		protected.GET("/:booking_id", bookingController.GetBooking)
		protected.POST("/:booking_id/cancel", bookingController.CancelBooking)
	}
}
