package models

import (
	"time"

	"github.com/google/uuid"
)

// ── Profile & Weekly Aggregates ───────────────────────────

type UserProfile struct {
	UserID                    uuid.UUID `json:"user_id"`
	TotalBloksLifetime        int       `json:"total_bloks_lifetime"`
	TotalProblemsSolved       int       `json:"total_problems_solved"`
	ConsecutiveQualifiedWeeks int       `json:"consecutive_qualified_weeks"`
	HighestConsecutiveWeeks   int       `json:"highest_consecutive_weeks"`
	TotalQualifiedWeeks       int       `json:"total_qualified_weeks"`
	Version                   int64     `json:"-"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

type WeeklyProgress struct {
	UserID         uuid.UUID `json:"user_id"`
	WeekStartDate  string    `json:"week_start_date"`
	BloksEarned    int       `json:"bloks_earned"`
	ProblemsSolved int       `json:"problems_solved"`
	Qualified      bool      `json:"qualified"`
	CountedInTotal bool      `json:"counted_in_total"`
	StreakUpdated  bool      `json:"streak_updated"`
}

// ── Badges ────────────────────────────────────────────────

type Badge struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	BadgeType   string    `json:"badge_type"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	SortOrder   int       `json:"sort_order"`
}

type UserBadge struct {
	UserID   uuid.UUID `json:"user_id"`
	BadgeID  uuid.UUID `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
}

// EarnedBadge is a catalog badge joined with the time the user earned it.
type EarnedBadge struct {
	Badge
	EarnedAt time.Time `json:"earned_at"`
}

// ── Response Types ────────────────────────────────────────

type WeekSummary struct {
	WeekStartDate  string `json:"week_start_date"`
	BloksEarned    int    `json:"bloks_earned"`
	ProblemsSolved int    `json:"problems_solved"`
	Qualified      bool   `json:"qualified"`
	Threshold      int    `json:"threshold"`
	BloksToQualify int    `json:"bloks_to_qualify"`
}

type ProgressResponse struct {
	Profile     UserProfile   `json:"profile"`
	CurrentWeek WeekSummary   `json:"current_week"`
	Badges      []EarnedBadge `json:"badges"`
}
