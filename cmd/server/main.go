package main

import (
	"context"   // context package is needed for Redis operations and shutdown
	"errors"    // Error inspection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Shutdown deadline

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging

	"rps_wallet/internal/api"        // Custom package for API handlers
	"rps_wallet/internal/cashier"    // Deposits, withdrawals and payout polling
	"rps_wallet/internal/config"     // Custom package for configuration
	"rps_wallet/internal/db"         // Database connection
	"rps_wallet/internal/ledger"     // Transaction lifecycle
	"rps_wallet/internal/notify"     // Events and websocket hub
	"rps_wallet/internal/payment"    // Payment processor client
	"rps_wallet/internal/settlement" // Game engine
	"rps_wallet/internal/utils"      // Cache invalidation
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	// Connect to the database
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client; the server runs without cache when Redis is not configured
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		// Test Redis connection
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logrus.Warn("REDIS_ADDR not set, caching and rate limiting disabled")
	}

	// Events reach websocket clients and drop stale cache entries
	hub := notify.NewHub()
	defer hub.Close()
	events := notify.Multi{utils.NewCacheInvalidator(redisClient), hub}

	// Services
	l := ledger.New(gdb)
	engine := settlement.NewEngine(gdb, l, cfg.HouseUserID,
		settlement.WithMaxRounds(cfg.MaxRounds),
		settlement.WithPublisher(events))
	processor := payment.NewPayPal(payment.PayPalConfig{
		BaseURL:      cfg.PayPalURL,
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalSecret,
		ReturnURL:    cfg.PayPalReturnURL,
		CancelURL:    cfg.PayPalCancelURL,
	})
	cs := cashier.New(gdb, l, processor, cashier.Config{
		Currency:      cfg.Currency,
		WithdrawalFee: cfg.WithdrawalFee,
	}, events)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Settle payouts the processor finished after the request returned
	poller := cashier.NewPoller(cs, cfg.PayoutPoll)
	poller.Start(ctx)
	defer poller.Stop()

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Deps{
		Config:  cfg,
		DB:      gdb,
		Redis:   redisClient,
		Ledger:  l,
		Engine:  engine,
		Cashier: cs,
		Hub:     hub,
		Events:  events,
	})

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done() // Wait for interrupt
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("graceful shutdown failed: %v", err)
	}
}
