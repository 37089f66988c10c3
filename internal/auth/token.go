package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fallbackTokenTTL applies when a caller asks for a non-positive lifetime.
const fallbackTokenTTL = 15 * time.Minute

// ErrInvalidToken covers every way a bearer token can fail validation:
// bad signature, wrong algorithm, expired, malformed, or missing subject.
// Callers translate it to a 401 without leaking which check failed.
var ErrInvalidToken = errors.New("could not validate credentials")

// TokenService issues and validates HS256-signed bearer tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService signing with the given secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue signs a token for the given username with the given lifetime.
// Non-positive lifetimes fall back to 15 minutes.
func (s *TokenService) Issue(username string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = fallbackTokenTTL
	}
	claims := jwt.MapClaims{
		"sub": username,
		"exp": jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses the token, checks signature, algorithm and expiry, and
// returns the subject claim.
func (s *TokenService) Validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
