package gamification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StreakUpdate reports the profile fields after a streak update. Applied is
// false when the week's guard was not claimable and nothing changed.
type StreakUpdate struct {
	Applied                 bool    `json:"applied"`
	Week                    WeekKey `json:"week"`
	ConsecutiveWeeks        int     `json:"consecutive_qualified_weeks"`
	HighestConsecutiveWeeks int     `json:"highest_consecutive_weeks"`
	TotalQualifiedWeeks     int     `json:"total_qualified_weeks"`
}

// AdvanceStreak computes the profile fields for a newly qualified week.
func AdvanceStreak(s StreakState) StreakState {
	next := s
	if s.PreviousWeekQualified {
		next.ConsecutiveWeeks = s.ConsecutiveWeeks + 1
	} else {
		next.ConsecutiveWeeks = 1
	}
	if next.ConsecutiveWeeks > next.HighestConsecutiveWeeks {
		next.HighestConsecutiveWeeks = next.ConsecutiveWeeks
	}
	if !s.CountedInTotal {
		next.TotalQualifiedWeeks++
		next.CountedInTotal = true
	}
	return next
}

// UpdateStreak recalculates the user's streak for a qualified week. It runs
// at most once per week; later calls for the same week are no-ops.
func (s *Service) UpdateStreak(ctx context.Context, userID uuid.UUID, week WeekKey) (StreakUpdate, error) {
	state, applied, err := s.streaks.ApplyStreak(ctx, userID, week, week.Previous(), AdvanceStreak)
	if err != nil {
		return StreakUpdate{Week: week}, fmt.Errorf("apply streak for week %s: %w", week, err)
	}
	if !applied {
		s.logger.Debug("streak update skipped", "user_id", userID, "week", week)
		return StreakUpdate{Week: week}, nil
	}

	s.logger.Info("streak updated",
		"user_id", userID,
		"week", week,
		"consecutive_weeks", state.ConsecutiveWeeks,
		"highest_weeks", state.HighestConsecutiveWeeks,
	)
	return StreakUpdate{
		Applied:                 true,
		Week:                    week,
		ConsecutiveWeeks:        state.ConsecutiveWeeks,
		HighestConsecutiveWeeks: state.HighestConsecutiveWeeks,
		TotalQualifiedWeeks:     state.TotalQualifiedWeeks,
	}, nil
}
