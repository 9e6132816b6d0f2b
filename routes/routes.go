package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/staybook/badwords"
	"github.com/joy095/staybook/config"
	"github.com/joy095/staybook/handlers/image_handlers"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps carries the shared infrastructure every route group draws from. Redis
// is optional; without it rate limits are kept in memory and responses are
// not cached.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Words  *badwords.Filter
	Images *image_handlers.ImageService
}

func RegisterHealthRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok from staybook"})
	})
	router.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
}
