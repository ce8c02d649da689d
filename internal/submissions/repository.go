package submissions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/models"
)

var (
	ErrTrackNotFound   = errors.New("track not found")
	ErrProblemNotFound = errors.New("problem not found")
	ErrDayNotFound     = errors.New("day not found")
	ErrVersionConflict = errors.New("profile changed concurrently")
)

// WeeklyTotals is the state of a week row right after an additive upsert.
type WeeklyTotals struct {
	BloksEarned    int
	ProblemsSolved int
	Qualified      bool
}

type Repository interface {
	// InsertSubmission stores sub. With firstOnly set it stores nothing and
	// returns false when the user already has a submission for the problem.
	InsertSubmission(ctx context.Context, sub models.Submission, firstOnly bool) (bool, error)
	ProblemTrackID(ctx context.Context, problemID uuid.UUID) (uuid.UUID, error)

	IncrementUserStats(ctx context.Context, userID uuid.UUID, bloks int) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	CreateProfile(ctx context.Context, userID uuid.UUID) error
	// CompareAndSwapUserStats writes the lifetime totals only if the row is
	// still at expectedVersion.
	CompareAndSwapUserStats(ctx context.Context, userID uuid.UUID, expectedVersion int64, totalBloks, totalSolved int) (bool, error)

	AddWeeklyProgress(ctx context.Context, userID uuid.UUID, week gamification.WeekKey, bloks, threshold int) (WeeklyTotals, error)
	// GetWeeklyProgress returns nil, nil when the user has no row for week.
	GetWeeklyProgress(ctx context.Context, userID uuid.UUID, week gamification.WeekKey) (*models.WeeklyProgress, error)
	AddTrackProgress(ctx context.Context, userID, trackID uuid.UUID, bloks int, solvedAt time.Time) error

	GetProblem(ctx context.Context, problemID uuid.UUID) (*models.Problem, error)
	GetTrack(ctx context.Context, trackID uuid.UUID) (*models.Track, error)
	GetTrackByName(ctx context.Context, name string) (*models.Track, error)
	ListTracks(ctx context.Context) ([]models.Track, error)
	UpsertTracks(ctx context.Context, defs []catalog.TrackDef) error

	// ProblemsWithProgress annotates each problem with the user's earliest
	// submission for it.
	ProblemsWithProgress(ctx context.Context, trackID, userID uuid.UUID) ([]models.ProblemProgress, error)
	LastSubmissionAt(ctx context.Context, userID uuid.UUID) (time.Time, bool, error)
	CountSubmissionsSince(ctx context.Context, userID, trackID uuid.UUID, since time.Time) (int, error)
	SolvedProblems(ctx context.Context, userID uuid.UUID, limit int) ([]models.SolvedProblem, error)
}

// StreakUpdater recalculates a user's streak for a newly qualified week.
type StreakUpdater interface {
	UpdateStreak(ctx context.Context, userID uuid.UUID, week gamification.WeekKey) (gamification.StreakUpdate, error)
}

// BadgeAwarder awards newly unlocked badges. It never fails.
type BadgeAwarder interface {
	CheckAndAwardBadges(ctx context.Context, userID uuid.UUID) []models.Badge
}
