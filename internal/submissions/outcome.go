package submissions

import (
	"errors"

	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/models"
)

// ErrRecordSubmission wraps the failure to store the submission itself,
// the only failure that aborts a completion.
var ErrRecordSubmission = errors.New("record submission")

type Step string

const (
	StepSubmission     Step = "submission"
	StepTrackLookup    Step = "track_lookup"
	StepLifetimeStats  Step = "lifetime_stats"
	StepWeeklyProgress Step = "weekly_progress"
	StepStreak         Step = "streak"
	StepTrackProgress  Step = "track_progress"
	StepBadges         Step = "badges"
)

// Status is how a non-fatal step ended.
type Status string

const (
	StatusOK Status = "ok"
	// StatusRecovered means the primary path failed and a fallback succeeded.
	StatusRecovered Status = "recovered"
	// StatusDegraded means the step's effect was lost; the submission stands.
	StatusDegraded Status = "degraded"
	StatusSkipped  Status = "skipped"
)

// StepOutcome is serialized to clients. Reason is a fixed message per step
// and status; the underlying error stays in Err.
type StepOutcome struct {
	Step   Step   `json:"step"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

var degradedReasons = map[Step]string{
	StepTrackLookup:    "track lookup failed",
	StepLifetimeStats:  "lifetime stats not updated",
	StepWeeklyProgress: "weekly progress not updated",
	StepStreak:         "streak update pending",
	StepTrackProgress:  "track progress not updated",
}

// WeeklyDelta describes the current week after a completion.
type WeeklyDelta struct {
	Week            gamification.WeekKey       `json:"week_start_date"`
	BloksEarned     int                        `json:"bloks_earned"`
	ProblemsSolved  int                        `json:"problems_solved"`
	Qualified       bool                       `json:"qualified"`
	BecameQualified bool                       `json:"became_qualified"`
	Streak          *gamification.StreakUpdate `json:"streak,omitempty"`
}

// Completion is the result of a recorded completion. Steps lists every
// pipeline step in execution order.
type Completion struct {
	Submission models.Submission `json:"submission"`
	NewBadges  []models.Badge    `json:"new_badges"`
	Weekly     *WeeklyDelta      `json:"weekly,omitempty"`
	Steps      []StepOutcome     `json:"steps"`
}

func (c *Completion) record(o StepOutcome) {
	c.Steps = append(c.Steps, o)
}

// Outcome returns the outcome recorded for step.
func (c *Completion) Outcome(step Step) (StepOutcome, bool) {
	for _, o := range c.Steps {
		if o.Step == step {
			return o, true
		}
	}
	return StepOutcome{}, false
}

// Degraded reports whether any derived aggregate missed this completion.
func (c *Completion) Degraded() bool {
	for _, o := range c.Steps {
		if o.Status == StatusDegraded {
			return true
		}
	}
	return false
}

func stepOK(step Step) StepOutcome {
	return StepOutcome{Step: step, Status: StatusOK}
}

func stepSkipped(step Step, reason string) StepOutcome {
	return StepOutcome{Step: step, Status: StatusSkipped, Reason: reason}
}

func stepDegraded(step Step, err error) StepOutcome {
	reason, ok := degradedReasons[step]
	if !ok {
		reason = "step failed"
	}
	return StepOutcome{Step: step, Status: StatusDegraded, Reason: reason, Err: err}
}

func stepRecovered(step Step, err error) StepOutcome {
	return StepOutcome{Step: step, Status: StatusRecovered, Reason: "applied after primary path failed", Err: err}
}
