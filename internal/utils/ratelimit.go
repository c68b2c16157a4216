package utils

import (
	"context" // Context for Redis operations
	"fmt"     // Key formatting
	"time"    // Window length

	"github.com/redis/go-redis/v9" // Redis client
)

// RateLimitKey is the counter key of one user's action
func RateLimitKey(userID uint, action string) string {
	return fmt.Sprintf("ratelimit:%d:%s", userID, action)
}

// CheckRateLimit counts one hit against key and reports whether it is within limit
// for the current window. A nil client always allows.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return true, nil // Rate limiting disabled
	}
	count, err := rdb.Incr(ctx, key).Result() // Count this hit
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	// First hit opens the window
	if count == 1 {
		rdb.Expire(ctx, key, window)
	}
	return count <= int64(limit), nil
}
