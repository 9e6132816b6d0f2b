package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/staybook/logger"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.ErrorLogger.WithFields(fields).Error("request")
		case status >= 400:
			logger.WarnLogger.WithFields(fields).Warn("request")
		default:
			logger.InfoLogger.WithFields(fields).Info("request")
		}
	}
}
