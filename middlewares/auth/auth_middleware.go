package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/staybook/logger"
	"github.com/joy095/staybook/utils/jwt_parse"
)

// AuthMiddleware validates the bearer token and stores the caller's id under
// "user_id" for utils.GetUserIDFromContext.
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		tokenString, err := jwt_parse.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := jwt_parse.ParseToken(key, tokenString)
		if err != nil {
			logger.WarnLogger.Warnf("Rejected token from %s: %v", c.ClientIP(), err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		if claims.TokenType != "" && claims.TokenType != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token type"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Next()
	}
}
