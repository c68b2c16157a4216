package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Money amounts
	"gorm.io/gorm"                  // GORM ORM library

	"rps_wallet/internal/cashier" // Deposits and withdrawals
	"rps_wallet/internal/domain"  // Importing domain models
	"rps_wallet/internal/utils"   // Utility functions
)

// MoneyRequest is the body of deposit and withdrawal requests
type MoneyRequest struct {
	Amount  decimal.Decimal `json:"amount"`  // Positive amount, as number or string
	Comment string          `json:"comment"` // Free text kept on the transaction
}

// txHistoryPage is the cached shape of one transaction history page
type txHistoryPage struct {
	Transactions []domain.Transaction `json:"transactions"` // List of transactions
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total transactions
	TotalPages   int                  `json:"total_pages"`  // Total pages
}

// GetWalletHandler returns wallet info for the authenticated user
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID")                             // Set by JWTAuthMiddleware
		ctx := c.Request.Context()                                // Context for DB and Redis operations
		cacheKey := utils.WalletKey(userID)                       // Cache key for wallet
		var wallet domain.Wallet                                  // Wallet struct to hold data
		found, err := utils.GetCache(ctx, rdb, cacheKey, &wallet) // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": true})
			return
		}
		// If not in cache, fetch from DB
		if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondError(c, "Get wallet", domain.NewError(domain.KindNotFound, "Wallet not found"))
				return
			}
			respondError(c, "Get wallet", err)
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, wallet, utils.CacheTTL)  // Cache the wallet
		c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": false}) // Return wallet info
	}
}

// GetTransactionHistoryHandler returns the authenticated user's transactions, newest first
func GetTransactionHistoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID") // Set by JWTAuthMiddleware
		ctx := c.Request.Context()    // Context for DB and Redis operations
		page, pageSize, offset := pagination(c)
		// Redis cache key
		cacheKey := utils.TxHistoryPrefix(userID) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
		var cached txHistoryPage
		// If found in cache, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}
		var wallet domain.Wallet // Get user's wallet
		if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			respondError(c, "Transaction history", domain.WrapError(domain.KindNotFound, "Wallet not found", err))
			return
		}
		var total int64 // Total count of transactions
		// Count total transactions for pagination
		if err := db.WithContext(ctx).Model(&domain.Transaction{}).Where("wallet_id = ?", wallet.ID).Count(&total).Error; err != nil {
			respondError(c, "Transaction history", err)
			return
		}
		var transactions []domain.Transaction // Slice to hold transactions
		// Fetch paginated transactions
		if err := db.WithContext(ctx).Where("wallet_id = ?", wallet.ID).
			Order("id desc").
			Offset(offset).
			Limit(pageSize).
			Find(&transactions).Error; err != nil {
			respondError(c, "Transaction history", err)
			return
		}
		resp := txHistoryPage{
			Transactions: transactions,                // List of transactions
			Page:         page,                        // Current page
			PageSize:     pageSize,                    // Page size
			Total:        total,                       // Total transactions
			TotalPages:   totalPages(total, pageSize), // Total pages
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, utils.CacheTTL) // Cache the page
		c.JSON(http.StatusOK, gin.H{
			"transactions": resp.Transactions,
			"page":         resp.Page,
			"page_size":    resp.PageSize,
			"total":        resp.Total,
			"total_pages":  resp.TotalPages,
			"cached":       false, // Not from cache
		})
	}
}

// DepositHandler opens a deposit and returns where the payer approves it
func DepositHandler(cs *cashier.Cashier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MoneyRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount", "kind": domain.KindValidation})
			return
		}
		res, err := cs.Deposit(c.Request.Context(), c.GetUint("userID"), req.Amount, req.Comment)
		if err != nil {
			respondError(c, "Deposit", err)
			return
		}
		c.JSON(http.StatusCreated, res) // Payer is redirected to approval_url
	}
}

// DepositSuccessHandler is the processor's return URL after approval
func DepositSuccessHandler(cs *cashier.Cashier) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := cs.ConfirmDeposit(c.Request.Context(), c.Query("paymentId"), c.Query("PayerID"))
		if err != nil {
			respondError(c, "Confirm deposit", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Deposit " + string(t.Status), "transaction": t})
	}
}

// DepositCancelHandler is the processor's cancel URL
func DepositCancelHandler(cs *cashier.Cashier) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := cs.CancelDeposit(c.Request.Context(), c.Query("paymentId"))
		if err != nil {
			respondError(c, "Cancel deposit", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Deposit cancelled", "transaction": t})
	}
}

// WithdrawHandler pays funds out to the wallet's payer email
func WithdrawHandler(cs *cashier.Cashier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MoneyRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount", "kind": domain.KindValidation})
			return
		}
		t, err := cs.Withdraw(c.Request.Context(), c.GetUint("userID"), req.Amount, req.Comment)
		if err != nil {
			respondError(c, "Withdraw", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Withdrawal " + string(t.Status), "transaction": t})
	}
}
