package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library

	"rps_wallet/internal/notify" // Wallet and game events
)

// CacheTTL is how long read models stay cached
const CacheTTL = 60 * time.Second

// WalletKey is the cache key of a user's wallet
func WalletKey(userID uint) string {
	return "wallet:user:" + strconv.FormatUint(uint64(userID), 10)
}

// TxHistoryPrefix prefixes every cached page of a user's transaction history
func TxHistoryPrefix(userID uint) string {
	return "txhistory:user:" + strconv.FormatUint(uint64(userID), 10)
}

// GamesKey is the cache key of a user's game history
func GamesKey(userID uint) string {
	return "games:user:" + strconv.FormatUint(uint64(userID), 10)
}

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client is a permanent cache miss.
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil // Caching disabled
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// DeleteCachePrefix deletes every key starting with prefix
func DeleteCachePrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	if rdb == nil {
		return nil
	}
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator() // Walk matching keys in batches
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return DeleteCache(ctx, rdb, keys...)
}

// CacheInvalidator drops cached read models when events report a change
type CacheInvalidator struct {
	rdb     *redis.Client
	timeout time.Duration
}

// NewCacheInvalidator creates an invalidator for rdb
func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator {
	return &CacheInvalidator{rdb: rdb, timeout: 2 * time.Second}
}

// Publish implements notify.Publisher
func (ci *CacheInvalidator) Publish(ev notify.Event) {
	if ci.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), ci.timeout)
	defer cancel()

	var err error
	switch ev.Type {
	case notify.EventWalletUpdate:
		err = DeleteCache(ctx, ci.rdb, WalletKey(ev.UserID)) // Balances changed
	case notify.EventTransactionUpdate:
		err = DeleteCachePrefix(ctx, ci.rdb, TxHistoryPrefix(ev.UserID)) // History changed
	case notify.EventGameCreated, notify.EventGameRound, notify.EventGameCompleted:
		err = DeleteCache(ctx, ci.rdb, GamesKey(ev.UserID)) // Game log changed
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": ev.UserID,   // Affected user
			"event":   ev.Type,     // Event type
			"error":   err.Error(), // Error message
		}).Warn("Cache invalidation failed")
	}
}
