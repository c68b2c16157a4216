package middleware

import (
	"net/http" // HTTP status codes
	"time"     // Window length

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library

	"rps_wallet/internal/utils" // Rate limit counters
)

// RateLimitMiddleware allows each user limit requests per window for action.
// Redis failures let the request through.
func RateLimitMiddleware(rdb *redis.Client, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Set by JWTAuthMiddleware
		if !exists || rdb == nil {
			c.Next()
			return
		}
		key := utils.RateLimitKey(userID.(uint), action)
		allowed, err := utils.CheckRateLimit(c.Request.Context(), rdb, key, limit, window)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"action":  action,      // Limited action
				"error":   err.Error(), // Error message
			}).Warn("Rate limit check failed")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			return
		}
		c.Next()
	}
}
