package models

import (
	"time"

	"github.com/google/uuid"
)

// ── Catalog ───────────────────────────────────────────────

type Track struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	DailyLimit  *int      `json:"daily_limit,omitempty"`
	ComingSoon  bool      `json:"coming_soon"`
	SortOrder   int       `json:"sort_order"`
}

type Problem struct {
	ID         uuid.UUID `json:"id"`
	TrackID    uuid.UUID `json:"track_id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Difficulty string    `json:"difficulty"`
	Bloks      int       `json:"bloks"`
	Section    string    `json:"section,omitempty"`
	SortOrder  int       `json:"sort_order"`
}

// ── Submissions & Track Aggregates ────────────────────────

type Submission struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	ProblemID   uuid.UUID `json:"problem_id"`
	BloksEarned int       `json:"bloks_earned"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type TrackProgress struct {
	UserID           uuid.UUID  `json:"user_id"`
	TrackID          uuid.UUID  `json:"track_id"`
	ProblemsSolved   int        `json:"problems_solved"`
	TotalBloksEarned int        `json:"total_bloks_earned"`
	LastSolvedAt     *time.Time `json:"last_solved_at,omitempty"`
}

// ProblemProgress is a catalog problem annotated with the user's completion.
type ProblemProgress struct {
	Problem
	IsCompleted         bool       `json:"is_completed"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	BloksEarnedFromThis int        `json:"bloks_earned_from_this"`
}

type SolvedProblem struct {
	ProblemID   uuid.UUID `json:"problem_id"`
	Title       string    `json:"title"`
	Difficulty  string    `json:"difficulty"`
	TrackName   string    `json:"track_name"`
	BloksEarned int       `json:"bloks_earned"`
	SolvedAt    time.Time `json:"solved_at"`
}

// ── Response Types ────────────────────────────────────────

type TrackStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

type DayGroup struct {
	Label    string            `json:"label"`
	Slug     string            `json:"slug"`
	Day      int               `json:"day"`
	Title    string            `json:"title,omitempty"`
	Subtitle string            `json:"subtitle,omitempty"`
	Stats    TrackStats        `json:"stats"`
	Problems []ProblemProgress `json:"problems"`
}

type DailyLimitStatus struct {
	Limit          int    `json:"limit"`
	CompletedToday int    `json:"completed_today"`
	Remaining      int    `json:"remaining"`
	CanComplete    bool   `json:"can_complete"`
	Message        string `json:"message"`
}

type TrackOverview struct {
	Track           Track             `json:"track"`
	Stats           TrackStats        `json:"stats"`
	BloksEarned     int               `json:"bloks_earned"`
	Days            []DayGroup        `json:"days"`
	Problems        []ProblemProgress `json:"problems"`
	LastCompletedAt *time.Time        `json:"last_completed_at"`
	DailyLimit      *DailyLimitStatus `json:"daily_limit,omitempty"`
}

type LastCompletionResponse struct {
	HasCompletions  bool       `json:"has_completions"`
	LastCompletedAt *time.Time `json:"last_completed_at"`
}
