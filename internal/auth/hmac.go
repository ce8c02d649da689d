package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bloks-dev/backend/internal/models"
)

type hmacVerifier struct {
	secret   []byte
	audience string
	issuer   string
}

func newHMACVerifier(cfg Config) (Verifier, error) {
	if len(cfg.HMACSecret) < 32 {
		return nil, errors.New("hmac secret must be at least 32 bytes")
	}
	return &hmacVerifier{secret: []byte(cfg.HMACSecret), audience: cfg.Audience, issuer: cfg.Issuer}, nil
}

func (v *hmacVerifier) Verify(ctx context.Context, token string) (models.User, error) {
	keyFunc := func(*jwt.Token) (any, error) { return v.secret, nil }
	return verifyClaims(token, keyFunc, parserOptions(v.audience, v.issuer, "HS256")...)
}

// IssueToken signs an HS256 token for userID, for local tooling that
// stands in for the identity provider.
func IssueToken(cfg Config, userID uuid.UUID, ttl time.Duration) (string, error) {
	if len(cfg.HMACSecret) < 32 {
		return "", errors.New("hmac secret must be at least 32 bytes")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if cfg.Issuer != "" {
		claims.Issuer = cfg.Issuer
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.HMACSecret))
}

type noopVerifier struct{}

func (noopVerifier) Verify(_ context.Context, token string) (models.User, error) {
	id, err := parseSubject(token)
	if err != nil {
		return models.User{}, err
	}
	return models.User{ID: id}, nil
}
