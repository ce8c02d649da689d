package gamification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type ReconcileReport struct {
	Scanned int `json:"scanned"`
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// ReconcileStreaks replays streak updates for qualified weeks whose update
// never landed, oldest week first.
func (s *Service) ReconcileStreaks(ctx context.Context, limit int) (ReconcileReport, error) {
	var report ReconcileReport

	pending, err := s.streaks.PendingStreakWeeks(ctx, limit)
	if err != nil {
		return report, fmt.Errorf("list pending streak weeks: %w", err)
	}
	report.Scanned = len(pending)

	for _, w := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		week, err := ParseWeekKey(w.WeekStartDate)
		if err != nil {
			s.logger.Warn("skipping malformed week", "user_id", w.UserID, "week", w.WeekStartDate, "err", err)
			report.Failed++
			continue
		}
		update, err := s.UpdateStreak(ctx, w.UserID, week)
		if err != nil {
			s.logger.Error("reconcile streak", "user_id", w.UserID, "week", week, "err", err)
			report.Failed++
			continue
		}
		if update.Applied {
			report.Applied++
		}
	}
	return report, nil
}

// StartStreakReconciler schedules ReconcileStreaks every interval until ctx
// is cancelled.
func (s *Service) StartStreakReconciler(ctx context.Context, interval time.Duration, batch int) error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			report, err := s.ReconcileStreaks(ctx, batch)
			if err != nil {
				s.logger.Error("streak reconciler run failed", "err", err)
				return
			}
			if report.Scanned > 0 {
				s.logger.Info("streak reconciler run",
					"scanned", report.Scanned,
					"applied", report.Applied,
					"failed", report.Failed,
				)
			}
		}),
		gocron.WithName("streak-reconciler"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule streak reconciler: %w", err)
	}

	sched.Start()
	s.logger.Info("streak reconciler started", "interval", interval.String(), "batch", batch)

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			s.logger.Error("streak reconciler shutdown", "err", err)
		}
		s.logger.Info("streak reconciler stopped")
	}()
	return nil
}
