package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloks-dev/backend/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func hmacConfig() Config {
	return Config{Mode: ModeHMAC, HMACSecret: testSecret, Audience: "bloks", Issuer: "https://id.bloks.dev"}
}

func TestHMACRoundTrip(t *testing.T) {
	cfg := hmacConfig()
	v, err := NewVerifier(cfg)
	require.NoError(t, err)

	user := uuid.New()
	token, err := IssueToken(cfg, user, time.Hour)
	require.NoError(t, err)

	got, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user, got.ID)
	assert.NotZero(t, got.ExpiresAt)
}

func TestHMACRejects(t *testing.T) {
	cfg := hmacConfig()
	v, err := NewVerifier(cfg)
	require.NoError(t, err)
	user := uuid.New()

	expired, err := IssueToken(cfg, user, -time.Minute)
	require.NoError(t, err)

	otherAudience := cfg
	otherAudience.Audience = "someone-else"
	wrongAud, err := IssueToken(otherAudience, user, time.Hour)
	require.NoError(t, err)

	otherSecret := cfg
	otherSecret.HMACSecret = "ffffffffffffffffffffffffffffffff"
	wrongKey, err := IssueToken(otherSecret, user, time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{cfg.Audience},
		Issuer:    cfg.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	notUUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		Audience:  jwt.ClaimStrings{cfg.Audience},
		Issuer:    cfg.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"expired":        expired,
		"wrong audience": wrongAud,
		"wrong key":      wrongKey,
		"no subject":     noSubject,
		"subject not id": notUUID,
		"garbage":        "not.a.jwt",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.Error(t, err)
		})
	}
}

func TestNewVerifierValidation(t *testing.T) {
	_, err := NewVerifier(Config{Mode: ModeHMAC, HMACSecret: "short"})
	assert.Error(t, err)

	_, err = NewVerifier(Config{Mode: ModeJWKS})
	assert.Error(t, err)

	_, err = NewVerifier(Config{Mode: "saml"})
	assert.Error(t, err)

	_, err = IssueToken(Config{HMACSecret: "short"}, uuid.New(), time.Hour)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	v, err := NewVerifier(Config{Mode: ModeNoop})
	require.NoError(t, err)

	user := uuid.New()
	var seen uuid.UUID
	handler := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r)
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
	}{
		{"bearer token", "Authorization", "Bearer " + user.String(), http.StatusNoContent},
		{"lowercase scheme", "Authorization", "bearer " + user.String(), http.StatusNoContent},
		{"user header fallback", "X-User-ID", user.String(), http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"basic scheme", "Authorization", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Authorization", "Bearer ", http.StatusUnauthorized},
		{"not a user id", "Authorization", "Bearer alice", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, user, seen)
				return
			}
			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "unauthorized", body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestUserIDWithoutUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserID(req)
	assert.False(t, ok)

	req = req.WithContext(WithUser(req.Context(), models.User{}))
	_, ok = UserID(req)
	assert.False(t, ok)
}
