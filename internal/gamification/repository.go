package gamification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/models"
)

var ErrProfileNotFound = errors.New("user profile not found")

// StreakState is the slice of profile and week state a streak update
// reads and writes.
type StreakState struct {
	PreviousWeekQualified   bool
	ConsecutiveWeeks        int
	HighestConsecutiveWeeks int
	TotalQualifiedWeeks     int
	CountedInTotal          bool
}

type StreakRepository interface {
	// ApplyStreak claims the streak guard of a qualified week and writes
	// advance's result to the user's profile as one unit. It returns false
	// without writing when the week is missing, not qualified, already
	// updated, or the profile does not exist.
	ApplyStreak(ctx context.Context, userID uuid.UUID, week, previous WeekKey, advance func(StreakState) StreakState) (StreakState, bool, error)

	// PendingStreakWeeks lists qualified weeks still waiting for their
	// streak update, oldest first, skipping weeks a later update superseded.
	PendingStreakWeeks(ctx context.Context, limit int) ([]models.WeeklyProgress, error)
}

type BadgeRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	SolvedCountByDifficulty(ctx context.Context, userID uuid.UUID) (map[string]int, error)
	EarnedBadgeIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	BadgesByName(ctx context.Context, names []string) ([]models.Badge, error)
	// AwardBadge reports false when the user already held the badge.
	AwardBadge(ctx context.Context, userID, badgeID uuid.UUID, earnedAt time.Time) (bool, error)
	ListUserBadges(ctx context.Context, userID uuid.UUID) ([]models.EarnedBadge, error)
	UpsertBadges(ctx context.Context, defs []catalog.BadgeDef) error
}
