package gamification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Profile ─────────────────────────────────────────────

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, total_bloks_lifetime, total_problems_solved,
		        consecutive_qualified_weeks, highest_consecutive_weeks,
		        total_qualified_weeks, version, updated_at
		 FROM user_profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.TotalBloksLifetime, &p.TotalProblemsSolved,
		&p.ConsecutiveQualifiedWeeks, &p.HighestConsecutiveWeeks,
		&p.TotalQualifiedWeeks, &p.Version, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// ── Streaks ─────────────────────────────────────────────

func (s *Store) ApplyStreak(ctx context.Context, userID uuid.UUID, week, previous WeekKey, advance func(StreakState) StreakState) (StreakState, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return StreakState{}, false, fmt.Errorf("begin streak tx: %w", err)
	}
	defer tx.Rollback()

	// Claiming the guard and reading counted_in_total happen in one
	// conditional update; a concurrent claimant blocks on the row and then
	// matches nothing.
	var state StreakState
	err = tx.QueryRowContext(ctx,
		`UPDATE weekly_progress SET streak_updated = TRUE, updated_at = NOW()
		 WHERE user_id = $1 AND week_start_date = $2
		   AND qualified AND NOT streak_updated
		 RETURNING counted_in_total`,
		userID, week.String(),
	).Scan(&state.CountedInTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return StreakState{}, false, nil
	}
	if err != nil {
		return StreakState{}, false, fmt.Errorf("claim streak guard: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT qualified FROM weekly_progress WHERE user_id = $1 AND week_start_date = $2`,
		userID, previous.String(),
	).Scan(&state.PreviousWeekQualified)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return StreakState{}, false, fmt.Errorf("get previous week: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT consecutive_qualified_weeks, highest_consecutive_weeks, total_qualified_weeks
		 FROM user_profiles WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&state.ConsecutiveWeeks, &state.HighestConsecutiveWeeks, &state.TotalQualifiedWeeks)
	if errors.Is(err, sql.ErrNoRows) {
		return StreakState{}, false, nil
	}
	if err != nil {
		return StreakState{}, false, fmt.Errorf("lock profile: %w", err)
	}

	next := advance(state)

	_, err = tx.ExecContext(ctx,
		`UPDATE user_profiles SET
		    consecutive_qualified_weeks = $2,
		    highest_consecutive_weeks = $3,
		    total_qualified_weeks = $4,
		    version = version + 1,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		userID, next.ConsecutiveWeeks, next.HighestConsecutiveWeeks, next.TotalQualifiedWeeks,
	)
	if err != nil {
		return StreakState{}, false, fmt.Errorf("update profile streak: %w", err)
	}

	if next.CountedInTotal && !state.CountedInTotal {
		_, err = tx.ExecContext(ctx,
			`UPDATE weekly_progress SET counted_in_total = TRUE
			 WHERE user_id = $1 AND week_start_date = $2 AND NOT counted_in_total`,
			userID, week.String(),
		)
		if err != nil {
			return StreakState{}, false, fmt.Errorf("mark week counted: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return StreakState{}, false, fmt.Errorf("commit streak tx: %w", err)
	}
	return next, true, nil
}

func (s *Store) PendingStreakWeeks(ctx context.Context, limit int) ([]models.WeeklyProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT w.user_id, w.week_start_date::text, w.bloks_earned, w.problems_solved,
		        w.qualified, w.counted_in_total, w.streak_updated
		 FROM weekly_progress w
		 WHERE w.qualified AND NOT w.streak_updated
		   AND NOT EXISTS (
		       SELECT 1 FROM weekly_progress later
		       WHERE later.user_id = w.user_id
		         AND later.week_start_date > w.week_start_date
		         AND later.streak_updated
		   )
		 ORDER BY w.week_start_date, w.user_id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending streak weeks: %w", err)
	}
	defer rows.Close()

	var weeks []models.WeeklyProgress
	for rows.Next() {
		var w models.WeeklyProgress
		if err := rows.Scan(&w.UserID, &w.WeekStartDate, &w.BloksEarned, &w.ProblemsSolved,
			&w.Qualified, &w.CountedInTotal, &w.StreakUpdated); err != nil {
			return nil, fmt.Errorf("scan pending week: %w", err)
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// ── Badges ──────────────────────────────────────────────

func (s *Store) SolvedCountByDifficulty(ctx context.Context, userID uuid.UUID) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.difficulty, COUNT(*)
		 FROM submissions sub
		 JOIN problems p ON p.id = sub.problem_id
		 WHERE sub.user_id = $1
		 GROUP BY p.difficulty`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("count solved by difficulty: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var difficulty string
		var n int
		if err := rows.Scan(&difficulty, &n); err != nil {
			return nil, fmt.Errorf("scan difficulty count: %w", err)
		}
		counts[difficulty] = n
	}
	return counts, rows.Err()
}

func (s *Store) EarnedBadgeIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT badge_id FROM user_badges WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get earned badges: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan earned badge: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) BadgesByName(ctx context.Context, names []string) ([]models.Badge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, display_name, description, badge_type, icon, color, sort_order
		 FROM badges WHERE name = ANY($1)
		 ORDER BY sort_order`,
		pq.Array(names),
	)
	if err != nil {
		return nil, fmt.Errorf("get badges by name: %w", err)
	}
	defer rows.Close()

	var badges []models.Badge
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.DisplayName, &b.Description,
			&b.BadgeType, &b.Icon, &b.Color, &b.SortOrder); err != nil {
			return nil, fmt.Errorf("scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func (s *Store) AwardBadge(ctx context.Context, userID, badgeID uuid.UUID, earnedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO user_badges (user_id, badge_id, earned_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, badge_id) DO NOTHING`,
		userID, badgeID, earnedAt,
	)
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	return n == 1, nil
}

func (s *Store) ListUserBadges(ctx context.Context, userID uuid.UUID) ([]models.EarnedBadge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.id, b.name, b.display_name, b.description, b.badge_type,
		        b.icon, b.color, b.sort_order, ub.earned_at
		 FROM user_badges ub
		 JOIN badges b ON b.id = ub.badge_id
		 WHERE ub.user_id = $1
		 ORDER BY ub.earned_at DESC, b.sort_order`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	defer rows.Close()

	badges := []models.EarnedBadge{}
	for rows.Next() {
		var b models.EarnedBadge
		if err := rows.Scan(&b.ID, &b.Name, &b.DisplayName, &b.Description, &b.BadgeType,
			&b.Icon, &b.Color, &b.SortOrder, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan user badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func (s *Store) UpsertBadges(ctx context.Context, defs []catalog.BadgeDef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin badge upsert: %w", err)
	}
	defer tx.Rollback()

	for _, d := range defs {
		var difficulty *string
		if d.Rule.Difficulty != "" {
			difficulty = &d.Rule.Difficulty
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO badges (name, display_name, description, badge_type, icon, color,
			                     sort_order, rule_metric, rule_difficulty, rule_threshold)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (name) DO UPDATE SET
			    display_name = EXCLUDED.display_name,
			    description = EXCLUDED.description,
			    badge_type = EXCLUDED.badge_type,
			    icon = EXCLUDED.icon,
			    color = EXCLUDED.color,
			    sort_order = EXCLUDED.sort_order,
			    rule_metric = EXCLUDED.rule_metric,
			    rule_difficulty = EXCLUDED.rule_difficulty,
			    rule_threshold = EXCLUDED.rule_threshold`,
			d.Name, d.DisplayName, d.Description, d.BadgeType, d.Icon, d.Color,
			d.SortOrder, d.Rule.Metric, difficulty, d.Rule.Threshold,
		)
		if err != nil {
			return fmt.Errorf("upsert badge %s: %w", d.Name, err)
		}
	}
	return tx.Commit()
}
