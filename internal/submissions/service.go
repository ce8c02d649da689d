package submissions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/gamification"
)

type Service struct {
	repo    Repository
	streaks StreakUpdater
	badges  BadgeAwarder
	catalog *catalog.Catalog
	policy  DuplicatePolicy
	now     gamification.Clock
	logger  *slog.Logger
}

type Option func(*Service)

func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(s *Service) { s.policy = p }
}

func WithClock(c gamification.Clock) Option {
	return func(s *Service) { s.now = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, streaks StreakUpdater, badges BadgeAwarder, cat *catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		streaks: streaks,
		badges:  badges,
		catalog: cat,
		policy:  AllowResubmission,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() DuplicatePolicy {
	return s.policy
}

// SeedTracks writes the catalog's tracks so problems can reference them.
func (s *Service) SeedTracks(ctx context.Context) error {
	if err := s.repo.UpsertTracks(ctx, s.catalog.Tracks); err != nil {
		return fmt.Errorf("seed tracks: %w", err)
	}
	s.logger.Info("track catalog seeded", "count", len(s.catalog.Tracks))
	return nil
}
