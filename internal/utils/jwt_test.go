package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

type JWTTestSuite struct {
	suite.Suite
}

func TestJWTSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}

func (s *JWTTestSuite) TestRoundTrip() {
	token, err := GenerateJWT(42, "secret", time.Hour)
	s.Require().NoError(err)

	claims, err := ParseJWT(token, "secret")
	s.Require().NoError(err)
	s.Equal(uint(42), claims.UserID)
	s.Equal("42", claims.Subject)
}

func (s *JWTTestSuite) TestRejectsBadTokens() {
	valid, err := GenerateJWT(42, "secret", time.Hour)
	s.Require().NoError(err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("secret"))
	s.Require().NoError(err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)

	testCases := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "Wrong secret", token: valid, secret: "other"},
		{name: "Expired", token: expired, secret: "secret"},
		{name: "None algorithm", token: unsigned, secret: "secret"},
		{name: "Garbage", token: "not-a-token", secret: "secret"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := ParseJWT(tc.token, tc.secret)
			s.Error(err)
		})
	}
}

func (s *JWTTestSuite) TestActivationToken() {
	token, code, err := GenerateActivationToken("alice", "alice@example.com", "$2a$hash", "act-secret")
	s.Require().NoError(err)
	s.Len(code, 6)

	claims, err := ParseActivationToken(token, code, "act-secret")
	s.Require().NoError(err)
	s.Equal("alice", claims.Name)
	s.Equal("alice@example.com", claims.Email)
	s.Equal("$2a$hash", claims.PasswordHash)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = ParseActivationToken(token, wrong, "act-secret")
	s.ErrorIs(err, ErrInvalidActivation)

	_, err = ParseActivationToken(token, code, "jwt-secret")
	s.Error(err)
}
