package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bloks-dev/backend/internal/models"
)

type jwksVerifier struct {
	jwks     *keyfunc.JWKS
	audience string
	issuer   string
}

func newJWKSVerifier(cfg Config) (Verifier, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("jwks url is required")
	}

	options := keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			slog.Default().Warn("jwks refresh failed", "err", err)
		},
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, options)
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}
	return &jwksVerifier{jwks: jwks, audience: cfg.Audience, issuer: cfg.Issuer}, nil
}

func (v *jwksVerifier) Verify(ctx context.Context, token string) (models.User, error) {
	return verifyClaims(token, v.jwks.Keyfunc, parserOptions(v.audience, v.issuer, "RS256", "ES256")...)
}

func parserOptions(audience, issuer string, methods ...string) []jwt.ParserOption {
	options := []jwt.ParserOption{
		jwt.WithLeeway(5 * time.Second),
		jwt.WithValidMethods(methods),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		options = append(options, jwt.WithAudience(audience))
	}
	if issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}
	return options
}

func verifyClaims(token string, keyFunc jwt.Keyfunc, options ...jwt.ParserOption) (models.User, error) {
	t, err := jwt.Parse(token, keyFunc, options...)
	if err != nil {
		return models.User{}, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return models.User{}, errors.New("unexpected claims type")
	}

	sub, _ := claims.GetSubject()
	id, err := parseSubject(sub)
	if err != nil {
		return models.User{}, err
	}

	sessionID, _ := claims["sid"].(string)
	var expiresAt int64
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Unix()
	}

	return models.User{ID: id, SessionID: sessionID, ExpiresAt: expiresAt}, nil
}
