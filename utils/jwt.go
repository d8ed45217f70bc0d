package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var ErrInvalidToken = errors.New("invalid token")

type SessionClaims struct {
	Username string `json:"username"`
	jwt.StandardClaims
}

// TokenSigner signs session tokens. Expiry is not checked here; the session
// store is authoritative for it.
type TokenSigner struct {
	key []byte
}

func NewTokenSigner(secret string) (*TokenSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("session secret must be at least 16 bytes")
	}
	return &TokenSigner{key: []byte(secret)}, nil
}

// GenerateToken returns a signed token with a random jti so that two logins
// at the same instant still get different tokens.
func (s *TokenSigner) GenerateToken(username string, issuedAt, expiresAt time.Time) (string, error) {
	jti, err := RandomID(32)
	if err != nil {
		return "", err
	}
	claims := &SessionClaims{
		Username: username,
		StandardClaims: jwt.StandardClaims{
			Id:        jti,
			IssuedAt:  issuedAt.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

func (s *TokenSigner) ValidateToken(signedToken string) (*SessionClaims, error) {
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	token, err := parser.ParseWithClaims(
		signedToken,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return s.key, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RandomID returns n bytes from crypto/rand, hex encoded.
func RandomID(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
