package submissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/models"
)

const (
	maxCASAttempts = 3
	// aggregateTimeout bounds the steps that follow a stored submission.
	aggregateTimeout = 30 * time.Second
)

// RecordCompletion stores a completed problem and folds it into the user's
// lifetime, weekly and track aggregates, then awards any unlocked badges.
//
// Only a failure to store the submission is returned as an error. Every
// later step reports its own outcome in Completion.Steps, and a failed step
// never undoes the submission. Once the submission is stored, cancelling ctx
// no longer stops the remaining steps.
func (s *Service) RecordCompletion(ctx context.Context, userID, problemID uuid.UUID, bloksEarned int) (*Completion, error) {
	if bloksEarned < 0 {
		return nil, fmt.Errorf("%w: negative bloks %d", ErrRecordSubmission, bloksEarned)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%w: generate id: %w", ErrRecordSubmission, err)
	}
	now := s.now().UTC()
	sub := models.Submission{
		ID:          id,
		UserID:      userID,
		ProblemID:   problemID,
		BloksEarned: bloksEarned,
		SubmittedAt: now,
	}

	inserted, err := s.repo.InsertSubmission(ctx, sub, s.policy == RejectDuplicates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecordSubmission, err)
	}
	if !inserted {
		return nil, ErrDuplicateSubmission
	}

	c := &Completion{Submission: sub, NewBadges: []models.Badge{}}
	c.record(stepOK(StepSubmission))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), aggregateTimeout)
	defer cancel()

	trackID, err := s.repo.ProblemTrackID(ctx, problemID)
	trackLookupFailed := err != nil
	if trackLookupFailed {
		s.logger.Warn("track lookup failed", "user_id", userID, "problem_id", problemID, "err", err)
		c.record(stepDegraded(StepTrackLookup, err))
		trackID = uuid.Nil
	} else {
		c.record(stepOK(StepTrackLookup))
	}

	c.record(s.addLifetimeStats(ctx, userID, bloksEarned))

	week := gamification.WeekStartOf(now)
	totals, err := s.repo.AddWeeklyProgress(ctx, userID, week, bloksEarned, gamification.QualificationThreshold)
	if err != nil {
		s.logger.Error("weekly progress update failed", "user_id", userID, "week", week, "err", err)
		c.record(stepDegraded(StepWeeklyProgress, err))
		c.record(stepSkipped(StepStreak, "weekly progress unavailable"))
	} else {
		c.record(stepOK(StepWeeklyProgress))
		c.Weekly = &WeeklyDelta{
			Week:            week,
			BloksEarned:     totals.BloksEarned,
			ProblemsSolved:  totals.ProblemsSolved,
			Qualified:       totals.Qualified,
			BecameQualified: BecameQualified(totals, bloksEarned, gamification.QualificationThreshold),
		}
		c.record(s.advanceStreak(ctx, userID, c.Weekly))
	}

	if trackLookupFailed {
		c.record(stepSkipped(StepTrackProgress, "track unknown after failed lookup"))
	} else if trackID == uuid.Nil {
		c.record(stepSkipped(StepTrackProgress, "no track for problem"))
	} else if err := s.repo.AddTrackProgress(ctx, userID, trackID, bloksEarned, now); err != nil {
		s.logger.Error("track progress update failed", "user_id", userID, "track_id", trackID, "err", err)
		c.record(stepDegraded(StepTrackProgress, err))
	} else {
		c.record(stepOK(StepTrackProgress))
	}

	c.NewBadges = s.badges.CheckAndAwardBadges(ctx, userID)
	c.record(stepOK(StepBadges))

	s.logger.Info("completion recorded",
		"user_id", userID,
		"problem_id", problemID,
		"bloks", bloksEarned,
		"new_badges", len(c.NewBadges),
		"degraded", c.Degraded(),
	)
	return c, nil
}

// BecameQualified reports whether the upsert that produced totals moved the
// week across threshold. A week qualified before the upsert already had at
// least threshold bloks, since bloks only ever grow.
func BecameQualified(totals WeeklyTotals, added, threshold int) bool {
	return totals.Qualified && totals.BloksEarned-added < threshold
}

func (s *Service) advanceStreak(ctx context.Context, userID uuid.UUID, weekly *WeeklyDelta) StepOutcome {
	if !weekly.BecameQualified {
		return stepSkipped(StepStreak, "week did not newly qualify")
	}
	update, err := s.streaks.UpdateStreak(ctx, userID, weekly.Week)
	if err != nil {
		s.logger.Warn("streak update failed", "user_id", userID, "week", weekly.Week, "err", err)
		return stepDegraded(StepStreak, err)
	}
	if !update.Applied {
		return stepSkipped(StepStreak, "streak already updated for week")
	}
	weekly.Streak = &update
	return stepOK(StepStreak)
}

// addLifetimeStats bumps the profile counters with the atomic increment and
// falls back to a version-checked read-modify-write.
func (s *Service) addLifetimeStats(ctx context.Context, userID uuid.UUID, bloks int) StepOutcome {
	err := s.repo.IncrementUserStats(ctx, userID, bloks)
	if err == nil {
		return stepOK(StepLifetimeStats)
	}
	s.logger.Warn("atomic stats increment failed, retrying with version check", "user_id", userID, "err", err)

	if casErr := s.addLifetimeStatsCAS(ctx, userID, bloks); casErr != nil {
		s.logger.Error("lifetime stats update failed", "user_id", userID, "err", casErr)
		return stepDegraded(StepLifetimeStats, errors.Join(err, casErr))
	}
	return stepRecovered(StepLifetimeStats, err)
}

func (s *Service) addLifetimeStatsCAS(ctx context.Context, userID uuid.UUID, bloks int) error {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		p, err := s.repo.GetProfile(ctx, userID)
		if errors.Is(err, gamification.ErrProfileNotFound) {
			if err := s.repo.CreateProfile(ctx, userID); err != nil {
				return fmt.Errorf("create profile: %w", err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("read profile: %w", err)
		}

		swapped, err := s.repo.CompareAndSwapUserStats(ctx, userID, p.Version,
			p.TotalBloksLifetime+bloks, p.TotalProblemsSolved+1)
		if err != nil {
			return fmt.Errorf("write profile: %w", err)
		}
		if swapped {
			return nil
		}
	}
	return ErrVersionConflict
}
