package submissions

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/models"
)

// DailyLimit evaluates a track's per-day completion cap.
func DailyLimit(limit, completedToday int) models.DailyLimitStatus {
	remaining := max(0, limit-completedToday)
	st := models.DailyLimitStatus{
		Limit:          limit,
		CompletedToday: completedToday,
		Remaining:      remaining,
		CanComplete:    completedToday < limit,
	}
	switch remaining {
	case 0:
		st.Message = "You've reached your daily limit! Come back tomorrow for more."
	case 1:
		st.Message = "1 problem remaining today"
	default:
		st.Message = fmt.Sprintf("%d problems remaining today", remaining)
	}
	return st
}

// CheckDailyLimit returns the daily limit status for the problem's track,
// or nil when the track has no limit.
func (s *Service) CheckDailyLimit(ctx context.Context, userID, problemID uuid.UUID) (*models.DailyLimitStatus, error) {
	problem, err := s.repo.GetProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	track, err := s.repo.GetTrack(ctx, problem.TrackID)
	if err != nil {
		return nil, err
	}
	return s.trackDailyLimit(ctx, userID, track)
}

func (s *Service) trackDailyLimit(ctx context.Context, userID uuid.UUID, track *models.Track) (*models.DailyLimitStatus, error) {
	if track.DailyLimit == nil {
		return nil, nil
	}
	today, err := s.TodayCompletionCount(ctx, userID, track.ID)
	if err != nil {
		return nil, err
	}
	st := DailyLimit(*track.DailyLimit, today)
	return &st, nil
}

// TodayCompletionCount counts the user's submissions to a track since
// midnight UTC.
func (s *Service) TodayCompletionCount(ctx context.Context, userID, trackID uuid.UUID) (int, error) {
	since := gamification.StartOfDayUTC(s.now())
	n, err := s.repo.CountSubmissionsSince(ctx, userID, trackID, since)
	if err != nil {
		return 0, fmt.Errorf("count today's completions: %w", err)
	}
	return n, nil
}
