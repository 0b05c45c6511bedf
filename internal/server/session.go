package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/desertthunder/mixtape/internal/shared"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Sessions issues and verifies the signed bearer tokens that carry a user id
// across requests. The core never sees the token, only the id.
type Sessions struct {
	secret []byte
	ttl    time.Duration
}

// NewSessions creates a session signer from the auth configuration.
func NewSessions(conf shared.AuthConfig) (*Sessions, error) {
	if conf.JWTSecret == "" {
		return nil, fmt.Errorf("%w: jwt secret is required", shared.ErrValidation)
	}
	ttl := time.Duration(conf.TokenTTLMins) * time.Minute
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{secret: []byte(conf.JWTSecret), ttl: ttl}, nil
}

// Issue signs a token whose subject is the user id.
func (s *Sessions) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	return token.SignedString(s.secret)
}

// Verify parses a bearer token and returns the user id it was issued for.
func (s *Sessions) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAuthRequired, err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", shared.ErrAuthRequired)
	}
	return claims.Subject, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's user id in the request context.
func (s *Sessions) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			http.Error(w, "Missing bearer token", http.StatusUnauthorized)
			return
		}
		userID, err := s.Verify(tokenString)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user id placed in the context by
// [Sessions.RequireAuth], or empty when the request was not authenticated.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
