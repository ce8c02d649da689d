package submissions_test

import (
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
	"github.com/bloks-dev/backend/internal/models"
	"github.com/bloks-dev/backend/internal/submissions"
)

func newRouter(t *testing.T, h *harness) http.Handler {
	t.Helper()
	verifier, err := auth.NewVerifier(auth.Config{Mode: auth.ModeNoop})
	require.NoError(t, err)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth.Middleware(verifier))
	submissions.NewHandler(h.service).Routes(api, protected)
	return r
}

func do(t *testing.T, router http.Handler, method, path string, user uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if user != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+user.String())
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCompleteProblemEndpoint(t *testing.T) {
	h := newHarness(t)
	router := newRouter(t, h)
	user := uuid.New()
	p := h.problem("deep-dive", "lru-cache", "hard", "", 150)

	rec := do(t, router, http.MethodPost, "/api/v1/problems/"+p.ID.String()+"/complete", user)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode[map[string]any](t, rec)
	sub := body["submission"].(map[string]any)
	assert.Equal(t, float64(150), sub["bloks_earned"])
	weekly := body["weekly"].(map[string]any)
	assert.Equal(t, true, weekly["became_qualified"])
	assert.Len(t, body["steps"], 7)
	assert.Len(t, body["new_badges"], 3)
}

func TestCompleteProblemEndpoint_DegradedStepKeepsCauseInternal(t *testing.T) {
	h := newHarness(t)
	router := newRouter(t, h)
	h.store.Fail("AddWeeklyProgress", errors.New(`pq: relation "weekly_progress" does not exist`))
	p := h.problem("deep-dive", "lru-cache", "hard", "", 150)

	rec := do(t, router, http.MethodPost, "/api/v1/problems/"+p.ID.String()+"/complete", uuid.New())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "pq:")

	body := decode[struct {
		Steps []submissions.StepOutcome `json:"steps"`
	}](t, rec)
	var weekly *submissions.StepOutcome
	for i := range body.Steps {
		if body.Steps[i].Step == submissions.StepWeeklyProgress {
			weekly = &body.Steps[i]
		}
	}
	require.NotNil(t, weekly)
	assert.Equal(t, submissions.StatusDegraded, weekly.Status)
	assert.Equal(t, "weekly progress not updated", weekly.Reason)
}

func TestCompleteProblemEndpoint_Errors(t *testing.T) {
	h := newHarness(t, submissions.WithDuplicatePolicy(submissions.RejectDuplicates))
	router := newRouter(t, h)
	user := uuid.New()
	p := h.problem("building-blocks", "two-sum", "easy", "", 10)

	tests := []struct {
		name     string
		path     string
		user     uuid.UUID
		wantCode int
		wantErr  string
	}{
		{"unauthenticated", "/api/v1/problems/" + p.ID.String() + "/complete", uuid.Nil, http.StatusUnauthorized, "unauthorized"},
		{"bad id", "/api/v1/problems/xyz/complete", user, http.StatusBadRequest, "bad_request"},
		{"unknown problem", "/api/v1/problems/" + uuid.NewString() + "/complete", user, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, tt.path, tt.user)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decode[models.ErrorResponse](t, rec).Code)
		})
	}

	t.Run("duplicate", func(t *testing.T) {
		path := "/api/v1/problems/" + p.ID.String() + "/complete"
		require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, path, user).Code)
		rec := do(t, router, http.MethodPost, path, user)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", decode[models.ErrorResponse](t, rec).Code)
	})

	t.Run("store down", func(t *testing.T) {
		other := h.problem("building-blocks", "three-sum", "medium", "", 10)
		h.store.Fail("InsertSubmission", errors.New("connection refused"))
		defer h.store.Fail("InsertSubmission", nil)

		rec := do(t, router, http.MethodPost, "/api/v1/problems/"+other.ID.String()+"/complete", user)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCompleteProblemEndpoint_DailyLimit(t *testing.T) {
	h := newHarness(t)
	router := newRouter(t, h)
	user := uuid.New()

	for i := 0; i < 20; i++ {
		h.complete(t, user, h.problem("dsa-bootcamp", uuid.NewString(), "easy", "Day 1", 1))
	}
	next := h.problem("dsa-bootcamp", "one-more", "easy", "Day 2", 1)

	rec := do(t, router, http.MethodPost, "/api/v1/problems/"+next.ID.String()+"/complete", user)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "daily_limit_reached", body["code"])
	assert.Equal(t, 20, h.store.SubmissionCount(user))

	// A failing limit check lets the completion through.
	h.store.Fail("CountSubmissionsSince", errors.New("timeout"))
	rec = do(t, router, http.MethodPost, "/api/v1/problems/"+next.ID.String()+"/complete", user)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestTrackEndpoints(t *testing.T) {
	h := newHarness(t)
	router := newRouter(t, h)
	user := uuid.New()
	fib := h.problem("dsa-bootcamp", "fibonacci", "easy", "Day 1", 10)
	h.problem("dsa-bootcamp", "merge-sort", "medium", "Day 2", 20)
	h.complete(t, user, fib)

	rec := do(t, router, http.MethodGet, "/api/v1/tracks", uuid.Nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Track](t, rec), 4)

	rec = do(t, router, http.MethodGet, "/api/v1/tracks/dsa-bootcamp", user)
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[models.TrackOverview](t, rec)
	assert.Equal(t, 1, overview.Stats.Completed)
	assert.Len(t, overview.Days, 2)

	rec = do(t, router, http.MethodGet, "/api/v1/tracks/dsa-bootcamp/days/day-1", user)
	require.Equal(t, http.StatusOK, rec.Code)
	day := decode[models.DayGroup](t, rec)
	assert.Equal(t, "Day 1", day.Label)
	assert.Equal(t, 100, day.Stats.Percentage)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/v1/tracks/nope", user).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/v1/tracks/dsa-bootcamp/days/day-7", user).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/v1/tracks/nope/days/day-1", user).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/api/v1/tracks/dsa-bootcamp", uuid.Nil).Code)
}

func TestHistoryEndpoints(t *testing.T) {
	h := newHarness(t)
	router := newRouter(t, h)
	user := uuid.New()

	rec := do(t, router, http.MethodGet, "/api/v1/me/last-completion", user)
	require.Equal(t, http.StatusOK, rec.Code)
	last := decode[models.LastCompletionResponse](t, rec)
	assert.False(t, last.HasCompletions)
	assert.Nil(t, last.LastCompletedAt)

	h.complete(t, user, h.problem("building-blocks", "two-sum", "easy", "", 10))

	rec = do(t, router, http.MethodGet, "/api/v1/me/last-completion", user)
	last = decode[models.LastCompletionResponse](t, rec)
	assert.True(t, last.HasCompletions)
	require.NotNil(t, last.LastCompletedAt)

	rec = do(t, router, http.MethodGet, "/api/v1/users/"+user.String()+"/solved?limit=5", uuid.Nil)
	require.Equal(t, http.StatusOK, rec.Code)
	solved := decode[[]models.SolvedProblem](t, rec)
	require.Len(t, solved, 1)
	assert.Equal(t, "two-sum", solved[0].Title)

	for _, path := range []string{
		"/api/v1/users/not-a-user/solved",
		"/api/v1/users/" + user.String() + "/solved?limit=0",
		"/api/v1/users/" + user.String() + "/solved?limit=500",
		"/api/v1/users/" + user.String() + "/solved?limit=ten",
	} {
		assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, path, uuid.Nil).Code, path)
	}
}
