// Package game holds the rock-paper-scissors rules used to decide rounds and games.
package game

import (
	"math/rand/v2"
	"strings"

	"rps_wallet/internal/domain"
)

// Move is one of the three recognised hands
type Move string

const (
	Rock     Move = "rock"
	Paper    Move = "paper"
	Scissors Move = "scissors"
)

// Moves lists every valid move
var Moves = []Move{Rock, Paper, Scissors}

// beats maps each move to the move it defeats
var beats = map[Move]Move{
	Rock:     Scissors,
	Scissors: Paper,
	Paper:    Rock,
}

// Outcome is the result of comparing two moves
type Outcome int

const (
	Draw Outcome = iota
	Player1
	Player2
)

func (o Outcome) String() string {
	switch o {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	default:
		return "draw"
	}
}

// ParseMove validates a client supplied move
func ParseMove(s string) (Move, error) {
	m := Move(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := beats[m]; !ok {
		return "", domain.NewError(domain.KindValidation, "invalid move")
	}
	return m, nil
}

// Resolve decides a single round. It is total over valid moves; an unknown move never wins.
func Resolve(a, b Move) Outcome {
	switch {
	case a == b:
		return Draw
	case beats[a] == b:
		return Player1
	default:
		return Player2
	}
}

// Tally counts round wins for each player over a log of move pairs
func Tally(rounds [][2]Move) (p1Wins, p2Wins int) {
	for _, r := range rounds {
		switch Resolve(r[0], r[1]) {
		case Player1:
			p1Wins++
		case Player2:
			p2Wins++
		}
	}
	return p1Wins, p2Wins
}

// Winner returns the aggregate result of a game; equal round wins is a draw
func Winner(rounds [][2]Move) Outcome {
	p1, p2 := Tally(rounds)
	switch {
	case p1 > p2:
		return Player1
	case p2 > p1:
		return Player2
	default:
		return Draw
	}
}

// MoveSource picks the house bot's move
type MoveSource interface {
	Next() Move
}

// RandomSource draws moves uniformly at random
type RandomSource struct{}

func (RandomSource) Next() Move {
	return Moves[rand.IntN(len(Moves))]
}
