package submissions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/memstore"
	"github.com/bloks-dev/backend/internal/models"
	"github.com/bloks-dev/backend/internal/submissions"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type harness struct {
	store        *memstore.Store
	clock        *testClock
	gamification *gamification.Service
	service      *submissions.Service
}

func newHarness(t *testing.T, opts ...submissions.Option) *harness {
	t.Helper()
	ctx := context.Background()

	cat, err := catalog.Default()
	require.NoError(t, err)

	h := &harness{
		store: memstore.New(),
		clock: &testClock{now: time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)},
	}
	h.gamification, err = gamification.NewService(h.store, h.store, cat,
		gamification.WithClock(h.clock.Now),
	)
	require.NoError(t, err)

	opts = append([]submissions.Option{submissions.WithClock(h.clock.Now)}, opts...)
	h.service = submissions.NewService(h.store, h.gamification, h.gamification, cat, opts...)

	require.NoError(t, h.gamification.SeedBadges(ctx))
	require.NoError(t, h.service.SeedTracks(ctx))
	return h
}

func (h *harness) problem(track, title, difficulty, section string, bloks int) models.Problem {
	return h.store.AddProblem(track, models.Problem{
		Title:      title,
		Slug:       title,
		Difficulty: difficulty,
		Bloks:      bloks,
		Section:    section,
	})
}

func (h *harness) complete(t *testing.T, user uuid.UUID, p models.Problem) *submissions.Completion {
	t.Helper()
	c, err := h.service.RecordCompletion(context.Background(), user, p.ID, p.Bloks)
	require.NoError(t, err)
	return c
}

func (h *harness) profile(t *testing.T, user uuid.UUID) *models.UserProfile {
	t.Helper()
	p, err := h.gamification.Profile(context.Background(), user)
	require.NoError(t, err)
	return p
}

func statusOf(t *testing.T, c *submissions.Completion, step submissions.Step) submissions.Status {
	t.Helper()
	o, ok := c.Outcome(step)
	require.True(t, ok, "no outcome for step %s", step)
	return o.Status
}
