//go:build integration

package submissions_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/database"
	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/models"
	"github.com/bloks-dev/backend/internal/submissions"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/...
func newPostgresStore(t *testing.T) (*submissions.Store, *sql.DB) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, database.Migrate(url))
	db, err := database.Connect(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := submissions.NewStore(db)
	cat, err := catalog.Default()
	require.NoError(t, err)
	require.NoError(t, store.UpsertTracks(context.Background(), cat.Tracks))
	return store, db
}

func insertProblem(t *testing.T, store *submissions.Store, db *sql.DB, track string, bloks int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	tr, err := store.GetTrackByName(ctx, track)
	require.NoError(t, err)

	var id uuid.UUID
	slug := uuid.NewString()
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO problems (track_id, title, slug, difficulty, bloks)
		 VALUES ($1, $2, $2, 'easy', $3) RETURNING id`,
		tr.ID, slug, bloks,
	).Scan(&id))
	return id
}

func newSubmission(user, problem uuid.UUID, bloks int, at time.Time) models.Submission {
	return models.Submission{
		ID:          uuid.Must(uuid.NewV7()),
		UserID:      user,
		ProblemID:   problem,
		BloksEarned: bloks,
		SubmittedAt: at,
	}
}

func TestStore_InsertSubmissionFirstOnlyUnderContention(t *testing.T) {
	store, db := newPostgresStore(t)
	ctx := context.Background()
	user := uuid.New()
	problem := insertProblem(t, store, db, "deep-dive", 10)

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.InsertSubmission(ctx, newSubmission(user, problem, 10, time.Now().UTC()), true)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, inserted)

	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE user_id = $1`, user).Scan(&n))
	assert.Equal(t, 1, n)

	ok, err := store.InsertSubmission(ctx, newSubmission(user, problem, 10, time.Now().UTC()), false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_AddWeeklyProgressCrossesThreshold(t *testing.T) {
	store, _ := newPostgresStore(t)
	ctx := context.Background()
	user := uuid.New()
	week := gamification.WeekKey("2024-01-15")

	first, err := store.AddWeeklyProgress(ctx, user, week, 140, gamification.QualificationThreshold)
	require.NoError(t, err)
	assert.Equal(t, submissions.WeeklyTotals{BloksEarned: 140, ProblemsSolved: 1}, first)
	assert.False(t, submissions.BecameQualified(first, 140, gamification.QualificationThreshold))

	second, err := store.AddWeeklyProgress(ctx, user, week, 20, gamification.QualificationThreshold)
	require.NoError(t, err)
	assert.Equal(t, submissions.WeeklyTotals{BloksEarned: 160, ProblemsSolved: 2, Qualified: true}, second)
	assert.True(t, submissions.BecameQualified(second, 20, gamification.QualificationThreshold))

	third, err := store.AddWeeklyProgress(ctx, user, week, 5, gamification.QualificationThreshold)
	require.NoError(t, err)
	assert.False(t, submissions.BecameQualified(third, 5, gamification.QualificationThreshold))

	w, err := store.GetWeeklyProgress(ctx, user, week)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, 165, w.BloksEarned)
	assert.False(t, w.StreakUpdated)
}

func TestStore_LifetimeStats(t *testing.T) {
	store, _ := newPostgresStore(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := store.GetProfile(ctx, user)
	require.ErrorIs(t, err, gamification.ErrProfileNotFound)

	require.NoError(t, store.IncrementUserStats(ctx, user, 30))
	require.NoError(t, store.IncrementUserStats(ctx, user, 20))

	p, err := store.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 50, p.TotalBloksLifetime)
	assert.Equal(t, 2, p.TotalProblemsSolved)

	stale, err := store.CompareAndSwapUserStats(ctx, user, p.Version-1, 999, 999)
	require.NoError(t, err)
	assert.False(t, stale)

	swapped, err := store.CompareAndSwapUserStats(ctx, user, p.Version, 60, 3)
	require.NoError(t, err)
	assert.True(t, swapped)

	after, err := store.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 60, after.TotalBloksLifetime)
	assert.Equal(t, p.Version+1, after.Version)

	require.NoError(t, store.CreateProfile(ctx, user))
	kept, err := store.GetProfile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 60, kept.TotalBloksLifetime)
}

func TestStore_ProblemsWithProgressUsesEarliestSubmission(t *testing.T) {
	store, db := newPostgresStore(t)
	ctx := context.Background()
	user := uuid.New()
	solved := insertProblem(t, store, db, "building-blocks", 10)
	insertProblem(t, store, db, "building-blocks", 20)

	earliest := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	_, err := store.InsertSubmission(ctx, newSubmission(user, solved, 7, earliest.Add(time.Hour)), false)
	require.NoError(t, err)
	_, err = store.InsertSubmission(ctx, newSubmission(user, solved, 10, earliest), false)
	require.NoError(t, err)

	tr, err := store.GetTrackByName(ctx, "building-blocks")
	require.NoError(t, err)
	problems, err := store.ProblemsWithProgress(ctx, tr.ID, user)
	require.NoError(t, err)

	var completed int
	for _, p := range problems {
		if p.ID != solved {
			assert.False(t, p.IsCompleted, p.Title)
			continue
		}
		completed++
		assert.True(t, p.IsCompleted)
		require.NotNil(t, p.CompletedAt)
		assert.True(t, earliest.Equal(*p.CompletedAt))
		assert.Equal(t, 10, p.BloksEarnedFromThis)
	}
	assert.Equal(t, 1, completed)

	last, ok, err := store.LastSubmissionAt(ctx, user)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, earliest.Add(time.Hour).Equal(last))

	n, err := store.CountSubmissionsSince(ctx, user, tr.ID, earliest.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
