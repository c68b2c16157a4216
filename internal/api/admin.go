package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"strings"  // String manipulation

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"rps_wallet/internal/domain" // Importing domain models
	"rps_wallet/internal/ledger" // Transaction lifecycle
	"rps_wallet/internal/notify" // Wallet and transaction events
	"rps_wallet/internal/utils"  // Utility functions
)

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID         uint           `json:"id"`          // User ID
	Name       string         `json:"name"`        // Display name
	Email      string         `json:"email"`       // Login email
	Role       string         `json:"role"`        // User role
	Type       string         `json:"type"`        // user or system
	IsVerified bool           `json:"is_verified"` // Activation state
	Wins       int            `json:"wins"`        // Games won
	Losses     int            `json:"losses"`      // Games lost
	Wallet     *domain.Wallet `json:"wallet"`      // Associated wallet
}

// usersPage is the cached shape of one admin user listing page
type usersPage struct {
	Users      []UserAdminResponse `json:"users"`       // List of users
	Page       int                 `json:"page"`        // Current page
	PageSize   int                 `json:"page_size"`   // Page size
	Total      int64               `json:"total"`       // Total number of users
	TotalPages int                 `json:"total_pages"` // Total pages
}

// SetStatusRequest resolves a deposit or withdrawal by hand
type SetStatusRequest struct {
	Status domain.TxStatus `json:"status" binding:"required"` // pending, success or failed
}

// ListUsersHandler returns all users with their wallet info
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context() // Context for DB and Redis operations
		page, pageSize, offset := pagination(c)
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached usersPage
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,      // List of users
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of users
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		var total int64 // Total user count
		if err := db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
			respondError(c, "List users", err)
			return
		}
		var users []domain.User // Slice to hold users
		// Preload Wallet relation, apply offset and limit for pagination
		if err := db.WithContext(ctx).Preload("Wallet").Order("id").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			respondError(c, "List users", err)
			return
		}
		// Map users to response format
		resp := usersPage{Users: make([]UserAdminResponse, len(users)), Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages(total, pageSize)}
		for i, u := range users {
			resp.Users[i] = UserAdminResponse{
				ID:         u.ID,
				Name:       u.Name,
				Email:      u.Email,
				Role:       u.Role,
				Type:       u.Type,
				IsVerified: u.IsVerified,
				Wins:       u.Wins,
				Losses:     u.Losses,
				Wallet:     u.Wallet,
			}
		}
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, utils.CacheTTL)
		c.JSON(http.StatusOK, gin.H{
			"users":       resp.Users,
			"page":        resp.Page,
			"page_size":   resp.PageSize,
			"total":       resp.Total,
			"total_pages": resp.TotalPages,
			"cached":      false, // Indicate response is not from cache
		})
	}
}

// ListTransactionsHandler returns all transactions, with optional filtering by
// wallet, mode, status or date. Results are never cached so stuck transactions
// show their current state.
func ListTransactionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize, offset := pagination(c)
		query := db.WithContext(c.Request.Context()).Model(&domain.Transaction{}) // Start building the query
		if walletID := c.Query("wallet_id"); walletID != "" {
			query = query.Where("wallet_id = ?", walletID) // Filter by wallet
		}
		if mode := c.Query("mode"); mode != "" {
			query = query.Where("mode = ?", strings.ToLower(mode)) // Filter by mode
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", strings.ToLower(status)) // Filter by status
		}
		if from := c.Query("from"); from != "" {
			query = query.Where("created_at >= ?", from) // Filter by start date
		}
		if to := c.Query("to"); to != "" {
			query = query.Where("created_at <= ?", to) // Filter by end date
		}
		var total int64 // Total transaction count
		if err := query.Count(&total).Error; err != nil {
			respondError(c, "List transactions", err)
			return
		}
		var txs []domain.Transaction // Slice to hold transactions
		// Fetch paginated transactions with filters applied
		if err := query.Order("id desc").Offset(offset).Limit(pageSize).Find(&txs).Error; err != nil {
			respondError(c, "List transactions", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"transactions": txs,                         // List of transactions
			"page":         page,                        // Current page
			"page_size":    pageSize,                    // Page size
			"total":        total,                       // Total number of transactions
			"total_pages":  totalPages(total, pageSize), // Total pages
		})
	}
}

// SetTransactionStatusHandler moves a stuck deposit or withdrawal to a status by hand
func SetTransactionStatusHandler(l *ledger.Ledger, events notify.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id", "kind": domain.KindValidation})
			return
		}
		var req SetStatusRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.KindValidation})
			return
		}
		res, err := l.SetStatus(c.Request.Context(), uint(id), req.Status)
		if err != nil {
			respondError(c, "Set transaction status", err)
			return
		}
		if res.Changed {
			events.Publish(notify.Event{Type: notify.EventTransactionUpdate, UserID: res.Wallet.UserID, Data: res.Transaction})
			events.Publish(notify.Event{Type: notify.EventWalletUpdate, UserID: res.Wallet.UserID, Data: res.Wallet})
		}
		c.JSON(http.StatusOK, gin.H{"transaction": res.Transaction, "wallet": res.Wallet, "changed": res.Changed})
	}
}
