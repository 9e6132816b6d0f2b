package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/staybook/controllers/payment_controller"
	middleware "github.com/joy095/staybook/middlewares"
	"github.com/joy095/staybook/middlewares/auth"
)

func RegisterPaymentRoutes(router *gin.Engine, deps Deps, workflow payment_controller.Workflow) {
	paymentController := payment_controller.NewPaymentController(workflow)
	limits := deps.Config.RateLimit

	payments := router.Group("/api/payments")

	// The provider calls back without credentials.
	callbackLimit := middleware.NewRateLimiter(deps.Redis, limits.Callback, "payment-callback", middleware.KeyByIP)
	payments.POST("/callback", callbackLimit, paymentController.PaymentCallback)
	payments.GET("/callback", callbackLimit, paymentController.PaymentCallback)

	protected := payments.Group("")
	protected.Use(auth.AuthMiddleware(deps.Config.JWTSecret))
	{
		protected.POST("/initiate",
			middleware.NewRateLimiter(deps.Redis, limits.Initiate, "payment-initiate", middleware.KeyByUser),
			paymentController.InitiatePayment)
		protected.GET("/verify/:transaction_id",
			middleware.NewRateLimiter(deps.Redis, limits.Verify, "payment-verify", middleware.KeyByUser),
			paymentController.VerifyPayment)
		protected.GET("/status/:payment_id", paymentController.GetPaymentStatus)
	}
}
