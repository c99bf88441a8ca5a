// Package auth issues and verifies the JWT bearer tokens protecting the
// admin API surface. Tenant-facing endpoints use HMAC request signing
// instead; this package only guards operator actions such as master key
// re-encryption.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"eaglechat-server/internal/common/errors"
	"eaglechat-server/internal/common/logging"
)

// DefaultTokenTTL is how long issued admin tokens stay valid
const DefaultTokenTTL = 24 * time.Hour

// Claims carried in admin tokens
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Auth signs and verifies admin tokens with a shared HS256 secret
type Auth struct {
	secret   []byte
	tokenTTL time.Duration
	logger   logging.Logger
	now      func() time.Time
}

// New creates an Auth with the given signing secret
func New(secret string, logger logging.Logger) *Auth {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Auth{
		secret:   []byte(secret),
		tokenTTL: DefaultTokenTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// GenerateToken issues a signed admin token for subject
func (a *Auth) GenerateToken(subject string) (string, error) {
	now := a.now()
	claims := Claims{
		Subject: subject,
		Role:    "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "eaglechat-server",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", errors.InternalError("failed to sign admin token", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a token string, returning its claims
func (a *Auth) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, errors.AuthError("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.AuthError("invalid token claims")
	}
	return claims, nil
}

// RequireAdmin wraps a handler and rejects requests without a valid bearer
// token. The verified subject is exposed to handlers via the X-Admin-Subject
// header.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			a.unauthorized(w)
			return
		}

		claims, err := a.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			a.logger.Warn("Admin token rejected",
				logging.Field{Key: "path", Value: r.URL.Path})
			a.unauthorized(w)
			return
		}

		r.Header.Set("X-Admin-Subject", claims.Subject)
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "Authentication required"}`))
}
