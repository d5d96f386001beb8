package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/issue-service/internal/config"
	"github.com/spec-kit/issue-service/internal/domain"
)

// Claims carries the platform identity embedded in a bearer token.
type Claims struct {
	SubjectID   string           `json:"sub_id"`
	Role        domain.ActorRole `json:"role"`
	DisplayName string           `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager verifies and (for tooling) issues HMAC-signed tokens. The
// platform identity service is the normal issuer; this service only needs
// to trust the shared secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager constructs a manager from auth config.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
	}
}

// IssueToken mints a token for the given subject. Used by local tooling and
// tests; production tokens come from the identity service.
func (m *TokenManager) IssueToken(subjectID string, role domain.ActorRole, displayName string) (string, error) {
	now := time.Now()
	claims := Claims{
		SubjectID:   subjectID,
		Role:        role,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken validates the signature and expiry and returns the claims.
func (m *TokenManager) ParseToken(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.SubjectID == "" || !claims.Role.Valid() {
		return nil, errors.New("token missing subject or role")
	}
	return claims, nil
}
