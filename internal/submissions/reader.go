package submissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/models"
)

// ── Progress Reads ──────────────────────────────────────

// ProblemsWithProgress lists a track's problems annotated with the user's
// completion. An unknown track yields an empty list.
func (s *Service) ProblemsWithProgress(ctx context.Context, trackName string, userID uuid.UUID) ([]models.ProblemProgress, error) {
	track, err := s.repo.GetTrackByName(ctx, trackName)
	if errors.Is(err, ErrTrackNotFound) {
		return []models.ProblemProgress{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return s.trackProblems(ctx, track.ID, userID)
}

func (s *Service) trackProblems(ctx context.Context, trackID, userID uuid.UUID) ([]models.ProblemProgress, error) {
	problems, err := s.repo.ProblemsWithProgress(ctx, trackID, userID)
	if err != nil {
		return nil, fmt.Errorf("get problems with progress: %w", err)
	}
	if problems == nil {
		problems = []models.ProblemProgress{}
	}
	return problems, nil
}

// LastCompletionTimestamp returns the user's most recent submission time.
// The bool is false when the user has never submitted.
func (s *Service) LastCompletionTimestamp(ctx context.Context, userID uuid.UUID) (time.Time, bool, error) {
	at, found, err := s.repo.LastSubmissionAt(ctx, userID)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get last submission: %w", err)
	}
	return at, found, nil
}

// TrackOverview assembles everything a track page shows for the user.
func (s *Service) TrackOverview(ctx context.Context, trackName string, userID uuid.UUID) (*models.TrackOverview, error) {
	track, err := s.repo.GetTrackByName(ctx, trackName)
	if err != nil {
		return nil, err
	}
	problems, err := s.trackProblems(ctx, track.ID, userID)
	if err != nil {
		return nil, err
	}

	overview := &models.TrackOverview{
		Track:    *track,
		Stats:    Stats(problems),
		Days:     []models.DayGroup{},
		Problems: problems,
	}
	for _, p := range problems {
		overview.BloksEarned += p.BloksEarnedFromThis
	}
	if hasDays(problems) {
		overview.Days = GroupByDay(problems, s.trackDays(track.Name))
	}

	// Display extras degrade to empty rather than failing the page.
	if at, found, err := s.LastCompletionTimestamp(ctx, userID); err != nil {
		s.logger.Warn("last completion unavailable", "user_id", userID, "err", err)
	} else if found {
		overview.LastCompletedAt = &at
	}
	limit, err := s.trackDailyLimit(ctx, userID, track)
	if err != nil {
		s.logger.Warn("daily limit unavailable", "user_id", userID, "track", track.Name, "err", err)
		limit = nil
	}
	overview.DailyLimit = limit

	return overview, nil
}

// DayProblems returns one "Day N" group of a track, addressed by its slug.
func (s *Service) DayProblems(ctx context.Context, trackName, daySlug string, userID uuid.UUID) (*models.DayGroup, error) {
	label, valid := DayLabelFromSlug(daySlug)
	if !valid {
		return nil, ErrDayNotFound
	}
	track, err := s.repo.GetTrackByName(ctx, trackName)
	if err != nil {
		return nil, err
	}
	problems, err := s.trackProblems(ctx, track.ID, userID)
	if err != nil {
		return nil, err
	}
	for _, g := range GroupByDay(problems, s.trackDays(track.Name)) {
		if g.Label == label {
			return &g, nil
		}
	}
	return nil, ErrDayNotFound
}

func (s *Service) trackDays(name string) []catalog.DayDef {
	t, found := s.catalog.Track(name)
	if !found {
		return nil
	}
	return t.Days
}

func (s *Service) ListTracks(ctx context.Context) ([]models.Track, error) {
	tracks, err := s.repo.ListTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	return tracks, nil
}

// SolvedProblems is the user's public solved list, newest first.
func (s *Service) SolvedProblems(ctx context.Context, userID uuid.UUID, limit int) ([]models.SolvedProblem, error) {
	solved, err := s.repo.SolvedProblems(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list solved problems: %w", err)
	}
	if solved == nil {
		solved = []models.SolvedProblem{}
	}
	return solved, nil
}

// CurrentWeek summarizes the user's progress toward this week's
// qualification.
func (s *Service) CurrentWeek(ctx context.Context, userID uuid.UUID) (models.WeekSummary, error) {
	week := gamification.CurrentWeekStart(s.now)
	summary := models.WeekSummary{
		WeekStartDate:  week.String(),
		Threshold:      gamification.QualificationThreshold,
		BloksToQualify: gamification.QualificationThreshold,
	}

	w, err := s.repo.GetWeeklyProgress(ctx, userID, week)
	if err != nil {
		return summary, fmt.Errorf("get weekly progress: %w", err)
	}
	if w == nil {
		return summary, nil
	}
	summary.BloksEarned = w.BloksEarned
	summary.ProblemsSolved = w.ProblemsSolved
	summary.Qualified = w.Qualified
	summary.BloksToQualify = max(0, gamification.QualificationThreshold-w.BloksEarned)
	return summary, nil
}

func (s *Service) Problem(ctx context.Context, problemID uuid.UUID) (*models.Problem, error) {
	p, err := s.repo.GetProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}
	return p, nil
}
