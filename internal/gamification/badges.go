package gamification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bloks-dev/backend/internal/models"
)

// CheckAndAwardBadges awards every badge the user's current stats unlock
// and returns the ones persisted by this call. It never fails: lookup
// errors yield an empty list and a failed award only drops that badge.
func (s *Service) CheckAndAwardBadges(ctx context.Context, userID uuid.UUID) []models.Badge {
	awarded := []models.Badge{}

	var (
		profile       *models.UserProfile
		difficulty    map[string]int
		earned        []uuid.UUID
		difficultyErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.badges.GetProfile(gctx, userID)
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		counts, err := s.badges.SolvedCountByDifficulty(gctx, userID)
		if err != nil {
			difficultyErr = err
			return nil
		}
		difficulty = counts
		return nil
	})
	g.Go(func() error {
		ids, err := s.badges.EarnedBadgeIDs(gctx, userID)
		if err != nil {
			return fmt.Errorf("fetch earned badges: %w", err)
		}
		earned = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("badge check aborted", "user_id", userID, "err", err)
		return awarded
	}
	if difficultyErr != nil {
		s.logger.Warn("difficulty counts unavailable", "user_id", userID, "err", difficultyErr)
	}
	if difficulty == nil {
		difficulty = map[string]int{}
	}

	stats := Stats{
		TotalSolved:     profile.TotalProblemsSolved,
		TotalPoints:     profile.TotalBloksLifetime,
		StreakWeeks:     profile.ConsecutiveQualifiedWeeks,
		DifficultyCount: difficulty,
	}
	unlocked := UnlockedAchievements(s.achievements, stats)
	if len(unlocked) == 0 {
		return awarded
	}

	candidates, err := s.badges.BadgesByName(ctx, unlocked)
	if err != nil {
		s.logger.Error("resolve unlocked badges", "user_id", userID, "err", err)
		return awarded
	}

	held := make(map[uuid.UUID]bool, len(earned))
	for _, id := range earned {
		held[id] = true
	}
	var fresh []models.Badge
	for _, b := range candidates {
		if !held[b.ID] {
			fresh = append(fresh, b)
		}
	}
	if len(fresh) == 0 {
		return awarded
	}

	now := s.now().UTC()
	persisted := make([]bool, len(fresh))
	var awards errgroup.Group
	for i, b := range fresh {
		awards.Go(func() error {
			ok, err := s.badges.AwardBadge(ctx, userID, b.ID, now)
			if err != nil {
				s.logger.Error("award badge", "user_id", userID, "badge", b.Name, "err", err)
				return nil
			}
			persisted[i] = ok
			return nil
		})
	}
	_ = awards.Wait()

	for i, b := range fresh {
		if persisted[i] {
			s.logger.Info("badge awarded", "user_id", userID, "badge", b.Name)
			awarded = append(awarded, b)
		}
	}
	return awarded
}
