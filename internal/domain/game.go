package domain

import (
	"time"

	"github.com/shopspring/decimal" // Precise monetary values
)

// GameStatus is the lifecycle state of a game
type GameStatus string

const (
	GameOngoing   GameStatus = "ongoing"
	GameCompleted GameStatus = "completed"
)

// DrawLabel is the round winner label written when neither player wins a round
const DrawLabel = "DRAW"

// Game Model
type Game struct {
	ID              uint            `gorm:"primaryKey" json:"id"`                                 // Primary key
	PlayerOneID     uint            `gorm:"index;not null" json:"player_one_id"`                  // Human player
	PlayerTwoID     uint            `gorm:"not null" json:"player_two_id"`                        // House bot
	Log             []GameRound     `gorm:"foreignKey:GameID" json:"game_log"`                    // Rounds in play order
	BetAmountTotal  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"bet_amount_total"`  // Sum of both stakes
	Rounds          int             `gorm:"not null" json:"rounds"`                               // Target round count
	CompletedRounds int             `gorm:"not null;default:0" json:"completed_rounds"`           // Rounds played so far
	Status          GameStatus      `gorm:"size:16;not null;default:ongoing;index" json:"status"` // ongoing or completed
	WinnerID        *uint           `json:"winner"`                                               // Null on draw or while ongoing
	LoserID         *uint           `json:"loser"`                                                // Null on draw or while ongoing
	Comment         string          `json:"comment"`                                              // Outcome summary
	CreatedAt       time.Time       `json:"created_at"`                                           // Creation time
	UpdatedAt       time.Time       `json:"updated_at"`                                           // Last update time
}

// Stake is the amount each player escrows
func (g *Game) Stake() decimal.Decimal {
	return g.BetAmountTotal.Div(decimal.NewFromInt(2))
}

// GameRound is one entry of a game's log
type GameRound struct {
	ID            uint   `gorm:"primaryKey" json:"-"`                     // Primary key
	GameID        uint   `gorm:"index;not null" json:"-"`                 // Owning game
	Seq           int    `gorm:"not null" json:"seq"`                     // 1-based round number
	PlayerOneMove string `gorm:"size:16;not null" json:"player_one_move"` // Human move
	PlayerTwoMove string `gorm:"size:16;not null" json:"player_two_move"` // Bot move
	Winner        string `gorm:"not null" json:"winner"`                  // Winner's name or DRAW
}
