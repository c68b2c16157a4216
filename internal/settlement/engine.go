// Package settlement runs games against the house: it escrows both stakes when
// a game starts, records rounds, and pays out when the last round is played.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rps_wallet/internal/domain"
	"rps_wallet/internal/game"
	"rps_wallet/internal/ledger"
	"rps_wallet/internal/notify"
)

// Engine creates, plays and settles games
type Engine struct {
	db          *gorm.DB
	ledger      *ledger.Ledger
	houseUserID uint
	maxRounds   int
	moves       game.MoveSource
	events      notify.Publisher
}

// Option configures an Engine
type Option func(*Engine)

// WithMoveSource replaces the random house bot
func WithMoveSource(src game.MoveSource) Option {
	return func(e *Engine) { e.moves = src }
}

// WithPublisher sets where committed changes are announced
func WithPublisher(p notify.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

// WithMaxRounds caps the rounds a game may be created with
func WithMaxRounds(n int) Option {
	return func(e *Engine) { e.maxRounds = n }
}

// NewEngine creates an Engine that plays every game against houseUserID
func NewEngine(db *gorm.DB, l *ledger.Ledger, houseUserID uint, opts ...Option) *Engine {
	e := &Engine{
		db:          db,
		ledger:      l,
		houseUserID: houseUserID,
		maxRounds:   10,
		moves:       game.RandomSource{},
		events:      notify.Discard{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateGame starts a game for playerOneID, escrowing betAmount from the player
// and a matching stake from the house. Nothing is written unless both stakes
// are escrowed.
func (e *Engine) CreateGame(ctx context.Context, playerOneID uint, betAmount decimal.Decimal, rounds int) (*domain.Game, error) {
	if err := domain.ValidateAmount(betAmount, "bet amount"); err != nil {
		return nil, err
	}
	if rounds < 1 || rounds > e.maxRounds {
		return nil, domain.NewError(domain.KindValidation, fmt.Sprintf("rounds must be between 1 and %d", e.maxRounds))
	}
	if playerOneID == e.houseUserID {
		return nil, domain.NewError(domain.KindValidation, "the house cannot play itself")
	}

	var (
		g       *domain.Game
		wallets map[uint]*domain.Wallet
	)
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wallets, err = ledger.LockUserWallets(tx, playerOneID, e.houseUserID)
		if err != nil {
			return err
		}

		// Locking read: under REPEATABLE READ a plain read would reuse the
		// snapshot taken before the wallet locks were granted.
		var ongoing []uint
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&domain.Game{}).
			Where("player_one_id = ? AND status = ?", playerOneID, domain.GameOngoing).
			Limit(1).Pluck("id", &ongoing).Error; err != nil {
			return err
		}
		if len(ongoing) > 0 {
			return domain.NewError(domain.KindConflict, "already on game")
		}

		if wallets[playerOneID].AvailableBalance.LessThan(betAmount) {
			return domain.NewError(domain.KindInsufficientBalance, "insufficient balance")
		}
		if wallets[e.houseUserID].AvailableBalance.LessThan(betAmount) {
			return domain.NewError(domain.KindInsufficientBalance, "house account cannot cover the stake")
		}

		g = &domain.Game{
			PlayerOneID:    playerOneID,
			PlayerTwoID:    e.houseUserID,
			BetAmountTotal: betAmount.Mul(decimal.NewFromInt(2)),
			Rounds:         rounds,
			Status:         domain.GameOngoing,
		}
		if err := tx.Create(g).Error; err != nil {
			return err
		}

		for _, userID := range []uint{playerOneID, e.houseUserID} {
			w := wallets[userID]
			if _, err := e.ledger.CreateIn(tx, w, ledger.Entry{
				Mode:          domain.ModeTransfer,
				WalletID:      w.ID,
				InvoiceNo:     strconv.FormatUint(uint64(g.ID), 10),
				Amount:        g.Stake(),
				RecipientType: domain.RecipientUser,
				Comment:       fmt.Sprintf("stake for game %d", g.ID),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, asConsistency(err, "game escrow could not be applied")
	}

	g.Log = []domain.GameRound{}
	logrus.WithFields(logrus.Fields{
		"game_id":   g.ID,
		"player_id": playerOneID,
		"bet":       betAmount.String(),
		"rounds":    rounds,
	}).Info("Game created")
	e.events.Publish(notify.Event{Type: notify.EventGameCreated, UserID: playerOneID, Data: g})
	e.publishWallets(wallets)
	return g, nil
}

// PlayRound plays playerOneMove against the house in the caller's ongoing game.
// The final round settles the game in the same database transaction.
func (e *Engine) PlayRound(ctx context.Context, playerOneID, gameID uint, playerOneMove string) (*domain.Game, error) {
	move, err := game.ParseMove(playerOneMove)
	if err != nil {
		return nil, err
	}

	var (
		g       domain.Game
		round   domain.GameRound
		wallets map[uint]*domain.Wallet
	)
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND player_one_id = ? AND status = ?", gameID, playerOneID, domain.GameOngoing).
			First(&g).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewError(domain.KindNotFound, "no active game found, please create a new game")
			}
			return err
		}
		if err := tx.Where("game_id = ?", g.ID).Order("seq").Find(&g.Log).Error; err != nil {
			return err
		}
		players, err := loadPlayers(tx, g.PlayerOneID, g.PlayerTwoID)
		if err != nil {
			return err
		}

		botMove := e.moves.Next()
		label := domain.DrawLabel
		switch game.Resolve(move, botMove) {
		case game.Player1:
			label = players[g.PlayerOneID].Name
		case game.Player2:
			label = players[g.PlayerTwoID].Name
		}

		round = domain.GameRound{
			GameID:        g.ID,
			Seq:           g.CompletedRounds + 1,
			PlayerOneMove: string(move),
			PlayerTwoMove: string(botMove),
			Winner:        label,
		}
		if err := tx.Create(&round).Error; err != nil {
			return err
		}
		g.Log = append(g.Log, round)
		g.CompletedRounds++

		if g.CompletedRounds == g.Rounds {
			if wallets, err = e.finalize(tx, &g, players); err != nil {
				return err
			}
		}
		return tx.Model(&g).
			Select("completed_rounds", "status", "winner_id", "loser_id", "comment", "updated_at").
			Updates(&g).Error
	})
	if err != nil {
		return nil, asConsistency(err, "round could not be recorded")
	}

	logrus.WithFields(logrus.Fields{
		"game_id":  g.ID,
		"round":    round.Seq,
		"move":     round.PlayerOneMove,
		"bot_move": round.PlayerTwoMove,
		"winner":   round.Winner,
	}).Info("Round played")
	e.events.Publish(notify.Event{Type: notify.EventGameRound, UserID: playerOneID, Data: round})
	if g.Status == domain.GameCompleted {
		e.events.Publish(notify.Event{Type: notify.EventGameCompleted, UserID: playerOneID, Data: g})
		e.publishWallets(wallets)
	}
	return &g, nil
}

// GetGameHistory returns every game played by playerID, newest first
func (e *Engine) GetGameHistory(ctx context.Context, playerID uint) ([]domain.Game, error) {
	var games []domain.Game
	err := e.db.WithContext(ctx).
		Preload("Log", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("player_one_id = ?", playerID).
		Order("id desc").
		Find(&games).Error
	if err != nil {
		return nil, fmt.Errorf("load game history: %w", err)
	}
	return games, nil
}

// publishWallets announces balance changes; every one of them also touched the
// wallet's game transfer, so transaction history is announced as well.
func (e *Engine) publishWallets(wallets map[uint]*domain.Wallet) {
	for userID, w := range wallets {
		e.events.Publish(notify.Event{Type: notify.EventWalletUpdate, UserID: userID, Data: w})
		e.events.Publish(notify.Event{Type: notify.EventTransactionUpdate, UserID: userID})
	}
}

func loadPlayers(tx *gorm.DB, ids ...uint) (map[uint]*domain.User, error) {
	var users []domain.User
	if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]*domain.User, len(users))
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	for _, id := range ids {
		if out[id] == nil {
			return nil, domain.NewError(domain.KindNotFound, "user not found")
		}
	}
	return out, nil
}

// asConsistency leaves domain errors alone and tags anything else that broke
// an atomic unit as a consistency failure.
func asConsistency(err error, msg string) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.WrapError(domain.KindConsistency, msg, err)
}
