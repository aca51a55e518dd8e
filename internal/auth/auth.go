package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"chatify-service/internal/apperr"
)

// TokenValidator is what the middleware and websocket handlers need from the
// auth layer: a bearer token in, a user id out.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Manager issues and validates session tokens and hashes passwords.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager constructs a Manager.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// HashPassword derives the stored password hash.
func (m *Manager) HashPassword(password string) (string, error) {
	if password == "" {
		return "", apperr.InvalidArg("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a candidate against the stored hash.
func (m *Manager) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return apperr.ErrInvalidCredentials
	}
	return nil
}

// IssueToken mints a signed session token for the user.
func (m *Manager) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ValidateToken verifies the token and returns the authenticated user id.
func (m *Manager) ValidateToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.Unauthorized("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", apperr.Unauthorized("invalid token")
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", apperr.Unauthorized("invalid token claims")
	}
	return claims.Subject, nil
}
