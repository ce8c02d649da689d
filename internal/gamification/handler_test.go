package gamification_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloks-dev/backend/internal/auth"
	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/models"
)

type weekFunc func(ctx context.Context, userID uuid.UUID) (models.WeekSummary, error)

func (f weekFunc) CurrentWeek(ctx context.Context, userID uuid.UUID) (models.WeekSummary, error) {
	return f(ctx, userID)
}

func serve(t *testing.T, svc *gamification.Service, weeks gamification.WeekSummarizer, path string, user uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	verifier, err := auth.NewVerifier(auth.Config{Mode: auth.ModeNoop})
	require.NoError(t, err)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth.Middleware(verifier))
	gamification.NewHandler(svc, weeks).Routes(api, protected)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != uuid.Nil {
		req.Header.Set("X-User-ID", user.String())
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestBadgeEndpoints(t *testing.T) {
	svc, store := newService(t)
	user := uuid.New()
	store.PutProfile(models.UserProfile{UserID: user, TotalProblemsSolved: 1, TotalBloksLifetime: 10})
	svc.CheckAndAwardBadges(context.Background(), user)

	weeks := weekFunc(func(context.Context, uuid.UUID) (models.WeekSummary, error) {
		return models.WeekSummary{WeekStartDate: "2024-01-15", BloksEarned: 10, Threshold: 150, BloksToQualify: 140}, nil
	})

	rec := serve(t, svc, weeks, "/api/v1/badges", uuid.Nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var catalog []models.Badge
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&catalog))
	assert.Len(t, catalog, 9)

	rec = serve(t, svc, weeks, "/api/v1/me/badges", user)
	require.Equal(t, http.StatusOK, rec.Code)
	var earned []models.EarnedBadge
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&earned))
	require.Len(t, earned, 1)
	assert.Equal(t, "first-steps", earned[0].Name)

	rec = serve(t, svc, weeks, "/api/v1/me/progress", user)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress models.ProgressResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&progress))
	assert.Equal(t, 10, progress.Profile.TotalBloksLifetime)
	assert.Equal(t, 140, progress.CurrentWeek.BloksToQualify)
	assert.Len(t, progress.Badges, 1)

	assert.Equal(t, http.StatusUnauthorized, serve(t, svc, weeks, "/api/v1/me/badges", uuid.Nil).Code)
}

func TestProgressEndpointDegrades(t *testing.T) {
	svc, store := newService(t)
	user := uuid.New()
	store.Fail("ListUserBadges", errors.New("timeout"))

	weeks := weekFunc(func(context.Context, uuid.UUID) (models.WeekSummary, error) {
		return models.WeekSummary{}, errors.New("timeout")
	})

	rec := serve(t, svc, weeks, "/api/v1/me/progress", user)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress models.ProgressResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&progress))
	assert.Equal(t, user, progress.Profile.UserID)
	assert.NotNil(t, progress.Badges)
	assert.Empty(t, progress.Badges)

	store.Fail("GetProfile", errors.New("timeout"))
	assert.Equal(t, http.StatusInternalServerError, serve(t, svc, weeks, "/api/v1/me/progress", user).Code)
}
