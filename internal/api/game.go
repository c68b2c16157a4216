package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Bet amounts

	"rps_wallet/internal/domain"     // Importing domain models
	"rps_wallet/internal/settlement" // Game engine
	"rps_wallet/internal/utils"      // Utility functions
)

// NewGameRequest starts a game against the house
type NewGameRequest struct {
	BetAmount decimal.Decimal `json:"bet_amount"` // Stake per side
	Rounds    int             `json:"rounds"`     // Number of rounds to play
}

// PlayRequest plays one round
type PlayRequest struct {
	GameID uint   `json:"game_id" binding:"required"` // Ongoing game
	Move   string `json:"move" binding:"required"`    // rock, paper or scissors
}

// NewGameHandler escrows both stakes and starts a game
func NewGameHandler(engine *settlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NewGameRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.KindValidation})
			return
		}
		g, err := engine.CreateGame(c.Request.Context(), c.GetUint("userID"), req.BetAmount, req.Rounds)
		if err != nil {
			respondError(c, "New game", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"game": g})
	}
}

// PlayHandler plays a round; the last round settles the game
func PlayHandler(engine *settlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PlayRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "kind": domain.KindValidation})
			return
		}
		g, err := engine.PlayRound(c.Request.Context(), c.GetUint("userID"), req.GameID, req.Move)
		if err != nil {
			respondError(c, "Play", err)
			return
		}
		last := g.Log[len(g.Log)-1] // Round just played
		c.JSON(http.StatusOK, gin.H{"game": g, "round": last})
	}
}

// GameHistoryHandler lists the caller's games with their round logs
func GameHistoryHandler(engine *settlement.Engine, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userID") // Set by JWTAuthMiddleware
		ctx := c.Request.Context()    // Context for Redis operations
		cacheKey := utils.GamesKey(userID)
		var games []domain.Game
		// If found in cache, return it
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &games); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"games": games, "cached": true})
			return
		}
		games, err := engine.GetGameHistory(ctx, userID)
		if err != nil {
			respondError(c, "Game history", err)
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, games, utils.CacheTTL) // Cache the history
		c.JSON(http.StatusOK, gin.H{"games": games, "cached": false})
	}
}
