package game

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"rps_wallet/internal/domain"
)

type ResolverTestSuite struct {
	suite.Suite
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverTestSuite))
}

func (s *ResolverTestSuite) TestResolveTable() {
	testCases := []struct {
		a, b     Move
		expected Outcome
	}{
		{Rock, Rock, Draw},
		{Rock, Paper, Player2},
		{Rock, Scissors, Player1},
		{Paper, Rock, Player1},
		{Paper, Paper, Draw},
		{Paper, Scissors, Player2},
		{Scissors, Rock, Player2},
		{Scissors, Paper, Player1},
		{Scissors, Scissors, Draw},
	}

	for _, tc := range testCases {
		s.Run(string(tc.a)+"_vs_"+string(tc.b), func() {
			s.Equal(tc.expected, Resolve(tc.a, tc.b))
		})
	}
}

func (s *ResolverTestSuite) TestResolveIsAntisymmetric() {
	mirror := map[Outcome]Outcome{Draw: Draw, Player1: Player2, Player2: Player1}
	for _, a := range Moves {
		for _, b := range Moves {
			s.Equal(mirror[Resolve(a, b)], Resolve(b, a), "%s vs %s", a, b)
		}
		s.Equal(Draw, Resolve(a, a), "a move never beats itself")
	}
}

func (s *ResolverTestSuite) TestParseMove() {
	m, err := ParseMove(" Rock ")
	s.NoError(err)
	s.Equal(Rock, m)

	_, err = ParseMove("lizard")
	s.True(domain.IsKind(err, domain.KindValidation))
}

func (s *ResolverTestSuite) TestWinner() {
	testCases := []struct {
		name     string
		rounds   [][2]Move
		expected Outcome
	}{
		{"clean sweep", [][2]Move{{Rock, Scissors}, {Paper, Rock}, {Scissors, Paper}}, Player1},
		{"house wins", [][2]Move{{Rock, Paper}, {Rock, Rock}}, Player2},
		{"tied wins", [][2]Move{{Rock, Scissors}, {Rock, Paper}, {Paper, Paper}}, Draw},
		{"all draws", [][2]Move{{Rock, Rock}}, Draw},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expected, Winner(tc.rounds))
		})
	}
}

func (s *ResolverTestSuite) TestRandomSourceYieldsValidMoves() {
	var src RandomSource
	for i := 0; i < 100; i++ {
		_, err := ParseMove(string(src.Next()))
		s.NoError(err)
	}
}
