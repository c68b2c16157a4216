package middleware

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library

	"rps_wallet/internal/domain" // Importing domain models
)

// AdminOnlyMiddleware re-reads the caller's role on each request, so a demoted
// admin loses access without waiting for the token to expire
func AdminOnlyMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID") // Set by JWTAuthMiddleware
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User
		err := db.WithContext(c.Request.Context()).Select("id", "role", "type").First(&user, userID).Error
		// The house account is never an operator, whatever its role column says
		if err != nil || user.Role != domain.RoleAdmin || user.Type == domain.UserTypeSystem {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,           // Caller
				"path":    c.FullPath(),     // Route attempted
				"method":  c.Request.Method, // HTTP method
			}).Warn("Admin access denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Set("role", user.Role) // Available to admin handlers
		c.Next()
	}
}
