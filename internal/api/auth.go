package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Token lifetime

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library

	"rps_wallet/internal/domain" // Importing domain models
	"rps_wallet/internal/utils"  // Utility functions
)

// Request struct for registration
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`           // Display name must be provided
	Email    string `json:"email" binding:"required,email"`    // Valid email must be provided
	Password string `json:"password" binding:"required,min=6"` // At least 6 characters
}

// Request struct for activation
type ActivateRequest struct {
	ActivationToken string `json:"activation_token" binding:"required"` // Token returned by registration
	ActivationCode  string `json:"activation_code" binding:"required"`  // 6-digit code
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token     string `json:"token"`      // JWT token
	ExpiresIn int    `json:"expires_in"` // Seconds until the token expires
}

// RegisterHandler validates a new account and returns its activation token and code
func RegisterHandler(db *gorm.DB, activationSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.KindValidation})
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email)) // Emails are unique case-insensitively
		// Reject emails already taken
		var count int64
		if err := db.WithContext(c.Request.Context()).Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			respondError(c, "Register", err)
			return
		}
		if count > 0 {
			respondError(c, "Register", domain.NewError(domain.KindConflict, "Email already exists"))
			return
		}
		// Hash now so the plain password never travels inside the token
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			// If hashing fails, return internal server error
			respondError(c, "Register", err)
			return
		}
		token, code, err := utils.GenerateActivationToken(strings.TrimSpace(req.Name), email, string(hash), activationSecret)
		if err != nil {
			respondError(c, "Register", err)
			return
		}
		// Return the pending registration
		c.JSON(http.StatusCreated, gin.H{
			"message":          "Please activate your account within 5 minutes",
			"activation_token": token, // Signed pending registration
			"activation_code":  code,  // Confirmation code
		})
	}
}

// ActivateHandler confirms a registration, creating the verified user and its wallet
func ActivateHandler(db *gorm.DB, activationSecret, currency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ActivateRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.KindValidation})
			return
		}
		claims, err := utils.ParseActivationToken(req.ActivationToken, req.ActivationCode, activationSecret)
		if err != nil {
			respondError(c, "Activate", domain.WrapError(domain.KindValidation, "Invalid or expired activation", err))
			return
		}
		user := domain.User{
			Name:       claims.Name,
			Email:      claims.Email,
			Password:   claims.PasswordHash,
			Role:       domain.RoleUser,
			Type:       domain.UserTypeUser,
			IsVerified: true,
		}
		// User and wallet are created together
		err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return domain.NewError(domain.KindConflict, "User already exists")
				}
				return err // Rollback
			}
			wallet := domain.Wallet{UserID: user.ID, Currency: currency}
			if err := tx.Create(&wallet).Error; err != nil {
				return err // Rollback
			}
			user.Wallet = &wallet
			return nil // Commit
		})
		if err != nil {
			respondError(c, "Activate", err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   user.ID,        // New user ID
			"wallet_id": user.Wallet.ID, // New wallet ID
		}).Info("Account activated")
		c.JSON(http.StatusCreated, gin.H{"message": "Account activated successfully", "user": user})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.KindValidation})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
			// If user not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// The house account never logs in
		if user.Type == domain.UserTypeSystem || !user.IsVerified {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, jwtSecret, ttl)
		if err != nil {
			// If token generation fails, return internal server error
			respondError(c, "Login", err)
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token, ExpiresIn: int(ttl.Seconds())})
	}
}

// MeHandler returns the authenticated user with wallet and record
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user domain.User
		if err := db.WithContext(c.Request.Context()).Preload("Wallet").First(&user, c.GetUint("userID")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(c, "Me", domain.NewError(domain.KindNotFound, "User not found"))
				return
			}
			respondError(c, "Me", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}
