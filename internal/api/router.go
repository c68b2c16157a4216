package api

import (
	"time" // Rate limit window

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"rps_wallet/internal/cashier"    // Deposits and withdrawals
	"rps_wallet/internal/config"     // Configuration
	"rps_wallet/internal/ledger"     // Transaction lifecycle
	"rps_wallet/internal/middleware" // Custom package for middleware
	"rps_wallet/internal/notify"     // Events and websocket hub
	"rps_wallet/internal/settlement" // Game engine
)

// Deps are the services the routes are wired to
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client // Optional; nil disables caching and rate limiting
	Ledger  *ledger.Ledger
	Engine  *settlement.Engine
	Cashier *cashier.Cashier
	Hub     *notify.Hub      // Optional; nil disables /ws
	Events  notify.Publisher // Receives admin status changes
}

// NewRouter registers every route on a new gin engine
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()                      // Gin router instance
	r.Use(gin.Logger(), gin.Recovery()) // Request log and panic recovery
	cfg := d.Config
	if d.Events == nil {
		d.Events = notify.Discard{}
	}
	auth := middleware.JWTAuthMiddleware(cfg.JWTSecret) // Shared JWT check

	// Account routes
	userGroup := r.Group("/user")
	userGroup.POST("/register", RegisterHandler(d.DB, cfg.ActivationSecret))               // Registration endpoint
	userGroup.POST("/activate", ActivateHandler(d.DB, cfg.ActivationSecret, cfg.Currency)) // Activation endpoint
	userGroup.POST("/login", LoginHandler(d.DB, cfg.JWTSecret, cfg.AccessTokenTTL))        // Login endpoint
	userGroup.GET("/me", auth, MeHandler(d.DB))                                            // Profile endpoint

	// Processor redirects carry no token
	r.GET("/wallet/success", DepositSuccessHandler(d.Cashier)) // Deposit approved
	r.GET("/wallet/cancel", DepositCancelHandler(d.Cashier))   // Deposit abandoned

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet", auth)
	walletGroup.GET("", GetWalletHandler(d.DB, d.Redis))                          // Get wallet endpoint
	walletGroup.GET("/transactions", GetTransactionHistoryHandler(d.DB, d.Redis)) // Transaction history endpoint
	walletGroup.POST("/deposit", DepositHandler(d.Cashier))                       // Deposit endpoint
	walletGroup.POST("/withdraw",
		middleware.RateLimitMiddleware(d.Redis, "withdraw", cfg.WithdrawLimit, time.Minute),
		WithdrawHandler(d.Cashier)) // Withdrawal endpoint

	// Game routes (protected by JWT)
	gameGroup := r.Group("/game", auth)
	gameGroup.POST("", NewGameHandler(d.Engine))             // New game endpoint
	gameGroup.GET("", GameHistoryHandler(d.Engine, d.Redis)) // Game history endpoint
	gameGroup.POST("/play",
		middleware.RateLimitMiddleware(d.Redis, "play", cfg.PlayRateLimit, time.Minute),
		PlayHandler(d.Engine)) // Play endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin", auth, middleware.AdminOnlyMiddleware(d.DB))
	adminGroup.GET("/users", ListUsersHandler(d.DB, d.Redis))                                     // List users endpoint
	adminGroup.GET("/transactions", ListTransactionsHandler(d.DB))                                // List transactions endpoint
	adminGroup.PATCH("/transactions/:id/status", SetTransactionStatusHandler(d.Ledger, d.Events)) // Manual resolution endpoint

	// Realtime events
	if d.Hub != nil {
		r.GET("/ws", auth, WebSocketHandler(d.Hub))
	}
	return r
}
