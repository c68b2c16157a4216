package utils

import (
	"crypto/rand" // Secure random activation codes
	"errors"      // Sentinel errors
	"fmt"         // Code formatting
	"math/big"    // Random range
	"strconv"     // Subject formatting
	"time"        // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// ErrInvalidActivation is returned when an activation code does not match its token
var ErrInvalidActivation = errors.New("invalid activation code")

// ActivationTTL is how long a registration can be activated
const ActivationTTL = 5 * time.Minute

// JWT Claims
type Claims struct {
	UserID               uint `json:"user_id"` // Custom claim for user ID
	jwt.RegisteredClaims      // Standard JWT claims
}

// ActivationClaims carry a pending registration until it is confirmed
type ActivationClaims struct {
	Name                 string `json:"name"`          // Display name
	Email                string `json:"email"`         // Login email
	PasswordHash         string `json:"password_hash"` // bcrypt hash, never the plain password
	Code                 string `json:"code"`          // 6-digit confirmation code
	jwt.RegisteredClaims        // Standard JWT claims
}

// GenerateJWT creates an access token for userID valid for ttl
func GenerateJWT(userID uint, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID, // Custom claim for user ID
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10), // Standard subject
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),       // Access token lifetime
			IssuedAt:  jwt.NewNumericDate(now),                // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenStr, secret, claims); err != nil {
		return nil, err // Return error if parsing fails
	}
	return claims, nil
}

// GenerateActivationToken signs a pending registration and returns it with its code
func GenerateActivationToken(name, email, passwordHash, secret string) (string, string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000)) // 0..899999
	if err != nil {
		return "", "", err
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000) // Always six digits
	claims := ActivationClaims{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Code:         code,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ActivationTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return token, code, nil
}

// ParseActivationToken validates the token and checks code against it
func ParseActivationToken(tokenStr, code, secret string) (*ActivationClaims, error) {
	claims := &ActivationClaims{}
	if err := parse(tokenStr, secret, claims); err != nil {
		return nil, err
	}
	if claims.Code != code {
		return nil, ErrInvalidActivation
	}
	return claims, nil
}

// parse verifies an HMAC-signed token into claims
func parse(tokenStr, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	// Check for parsing errors
	if err != nil {
		return err
	}
	// Validate token
	if !token.Valid {
		return jwt.ErrSignatureInvalid
	}
	return nil
}
