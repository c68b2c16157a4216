package config

import (
	"fmt"     // For DSN formatting
	"os"      // For environment variables
	"strconv" // For string to number conversion
	"time"    // For poll intervals

	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // For monetary settings
)

// Config holds the application configuration
type Config struct {
	AppPort          string          // Application port
	DBDriver         string          // Database driver: mysql or postgres
	DBUser           string          // Database user
	DBPassword       string          // Database password
	DBHost           string          // Database host
	DBPort           string          // Database port
	DBName           string          // Database name
	JWTSecret        string          // JWT secret key for access tokens
	ActivationSecret string          // JWT secret key for activation tokens
	AccessTokenTTL   time.Duration   // Lifetime of access tokens
	RedisAddr        string          // Redis server address
	RedisPass        string          // Redis password
	RedisDB          int             // Redis database number
	IsProd           bool            // Is production environment
	HouseUserID      uint            // User ID of the house bot account
	HouseSeedBalance decimal.Decimal // Opening balance of the house wallet
	Currency         string          // Wallet currency label
	MaxRounds        int             // Upper bound on rounds per game
	WithdrawalFee    decimal.Decimal // Flat fee charged per withdrawal
	PayPalURL        string          // Payment processor base URL
	PayPalClientID   string          // Payment processor client ID
	PayPalSecret     string          // Payment processor client secret
	PayPalReturnURL  string          // Redirect after an approved deposit
	PayPalCancelURL  string          // Redirect after a cancelled deposit
	PayoutPoll       time.Duration   // Interval between payout status sweeps
	PlayRateLimit    int             // Max game actions per user per minute
	WithdrawLimit    int             // Max withdrawal requests per user per minute
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:          getEnv("APP_PORT", "8080"),                                          // Application port
		DBDriver:         getEnv("DB_DRIVER", "mysql"),                                        // Database driver
		DBUser:           os.Getenv("DB_USER"),                                                // Database user
		DBPassword:       os.Getenv("DB_PASSWORD"),                                            // Database password
		DBHost:           os.Getenv("DB_HOST"),                                                // Database host
		DBPort:           os.Getenv("DB_PORT"),                                                // Database port
		DBName:           os.Getenv("DB_NAME"),                                                // Database name
		JWTSecret:        os.Getenv("JWT_SECRET"),                                             // JWT secret key
		ActivationSecret: os.Getenv("ACTIVATION_SECRET"),                                      // Activation secret key
		AccessTokenTTL:   getDuration("ACCESS_TOKEN_TTL", 24*time.Hour),                       // Access token lifetime
		RedisAddr:        os.Getenv("REDIS_ADDR"),                                             // Redis server address
		RedisPass:        os.Getenv("REDIS_PASS"),                                             // Redis password
		RedisDB:          redisDB,                                                             // Redis database number
		IsProd:           os.Getenv("IS_PROD") == "true",                                      // Is production environment
		HouseUserID:      uint(getInt("HOUSE_USER_ID", 1)),                                    // House bot account
		HouseSeedBalance: getDecimal("HOUSE_SEED_BALANCE", decimal.NewFromInt(10000)),         // House opening balance
		Currency:         getEnv("CURRENCY", "USD"),                                           // Wallet currency
		MaxRounds:        getInt("MAX_ROUNDS", 10),                                            // Max rounds per game
		WithdrawalFee:    getDecimal("WITHDRAWAL_FEE", decimal.NewFromInt(10)),                // Withdrawal fee
		PayPalURL:        getEnv("PAYPAL_URL", "https://api-m.sandbox.paypal.com"),            // Processor base URL
		PayPalClientID:   os.Getenv("PAYPAL_CLIENT_ID"),                                       // Processor client ID
		PayPalSecret:     os.Getenv("PAYPAL_CLIENT_SECRET"),                                   // Processor secret
		PayPalReturnURL:  getEnv("PAYPAL_RETURN_URL", "http://localhost:8080/wallet/success"), // Return URL
		PayPalCancelURL:  getEnv("PAYPAL_CANCEL_URL", "http://localhost:8080/wallet/cancel"),  // Cancel URL
		PayoutPoll:       getDuration("PAYOUT_POLL_INTERVAL", time.Minute),                    // Payout sweep interval
		PlayRateLimit:    getInt("PLAY_RATE_LIMIT", 60),                                       // Game rate limit
		WithdrawLimit:    getInt("WITHDRAW_RATE_LIMIT", 5),                                    // Withdrawal rate limit
	}
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		// Key/value DSN understood by pgx
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	}
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// getEnv returns the variable or a fallback when unset
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v // Use configured value
	}
	return fallback // Use default
}

// getInt parses an integer variable, falling back when unset or malformed
func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// getDecimal parses a decimal variable, falling back when unset or malformed
func getDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v, err := decimal.NewFromString(os.Getenv(key))
	if err != nil || v.IsNegative() {
		return fallback
	}
	return v
}

// getDuration parses a duration variable such as "30s"
func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
