package gamification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/models"
)

// QualificationThreshold is the weekly bloks total that marks a week qualified.
const QualificationThreshold = 150

type Service struct {
	streaks      StreakRepository
	badges       BadgeRepository
	catalog      *catalog.Catalog
	achievements []Achievement
	now          Clock
	logger       *slog.Logger
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(streaks StreakRepository, badges BadgeRepository, cat *catalog.Catalog, opts ...Option) (*Service, error) {
	achievements, err := AchievementsFromCatalog(cat.Badges)
	if err != nil {
		return nil, fmt.Errorf("build achievements: %w", err)
	}
	s := &Service{
		streaks:      streaks,
		badges:       badges,
		catalog:      cat,
		achievements: achievements,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CurrentWeek returns the key of the week containing the service clock's now.
func (s *Service) CurrentWeek() WeekKey {
	return CurrentWeekStart(s.now)
}

// ── Catalog ─────────────────────────────────────────────

// CatalogBadges lists every badge definition in display order.
func (s *Service) CatalogBadges() []models.Badge {
	out := make([]models.Badge, 0, len(s.catalog.Badges))
	for _, d := range s.catalog.Badges {
		out = append(out, d.Badge())
	}
	return out
}

func (s *Service) SeedBadges(ctx context.Context) error {
	if err := s.badges.UpsertBadges(ctx, s.catalog.Badges); err != nil {
		return fmt.Errorf("seed badges: %w", err)
	}
	s.logger.Info("badge catalog seeded", "count", len(s.catalog.Badges))
	return nil
}

func (s *Service) ListUserBadges(ctx context.Context, userID uuid.UUID) ([]models.EarnedBadge, error) {
	badges, err := s.badges.ListUserBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	if badges == nil {
		badges = []models.EarnedBadge{}
	}
	return badges, nil
}

// Profile returns the user's lifetime stats, or a zero profile when the
// user has never completed anything.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	p, err := s.badges.GetProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return &models.UserProfile{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}
