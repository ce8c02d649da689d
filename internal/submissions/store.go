package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/models"
)

type Store struct {
	db       *sql.DB
	profiles *gamification.Store
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, profiles: gamification.NewStore(db)}
}

// ── Submissions ─────────────────────────────────────────

func (s *Store) InsertSubmission(ctx context.Context, sub models.Submission, firstOnly bool) (bool, error) {
	if !firstOnly {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO submissions (id, user_id, problem_id, bloks_earned, submitted_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			sub.ID, sub.UserID, sub.ProblemID, sub.BloksEarned, sub.SubmittedAt,
		)
		if err != nil {
			return false, fmt.Errorf("insert submission: %w", err)
		}
		return true, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin submission tx: %w", err)
	}
	defer tx.Rollback()

	// Serializes concurrent first completions of the same (user, problem).
	_, err = tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::text, 0))`,
		sub.UserID, sub.ProblemID,
	)
	if err != nil {
		return false, fmt.Errorf("lock submission: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO submissions (id, user_id, problem_id, bloks_earned, submitted_at)
		 SELECT $1, $2, $3, $4, $5
		 WHERE NOT EXISTS (
		     SELECT 1 FROM submissions WHERE user_id = $2 AND problem_id = $3
		 )`,
		sub.ID, sub.UserID, sub.ProblemID, sub.BloksEarned, sub.SubmittedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert submission: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit submission: %w", err)
	}
	return true, nil
}

func (s *Store) ProblemTrackID(ctx context.Context, problemID uuid.UUID) (uuid.UUID, error) {
	var trackID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT track_id FROM problems WHERE id = $1`,
		problemID,
	).Scan(&trackID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrProblemNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("get problem track: %w", err)
	}
	return trackID, nil
}

// ── Lifetime Stats ──────────────────────────────────────

func (s *Store) IncrementUserStats(ctx context.Context, userID uuid.UUID, bloks int) error {
	_, err := s.db.ExecContext(ctx, `SELECT increment_user_stats($1, $2)`, userID, bloks)
	if err != nil {
		return fmt.Errorf("increment user stats: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	return s.profiles.GetProfile(ctx, userID)
}

func (s *Store) CreateProfile(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *Store) CompareAndSwapUserStats(ctx context.Context, userID uuid.UUID, expectedVersion int64, totalBloks, totalSolved int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_profiles SET
		    total_bloks_lifetime = $3,
		    total_problems_solved = $4,
		    version = version + 1,
		    updated_at = NOW()
		 WHERE user_id = $1 AND version = $2`,
		userID, expectedVersion, totalBloks, totalSolved,
	)
	if err != nil {
		return false, fmt.Errorf("swap user stats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap user stats: %w", err)
	}
	return n == 1, nil
}

// ── Weekly & Track Aggregates ───────────────────────────

func (s *Store) AddWeeklyProgress(ctx context.Context, userID uuid.UUID, week gamification.WeekKey, bloks, threshold int) (WeeklyTotals, error) {
	var t WeeklyTotals
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO weekly_progress (user_id, week_start_date, bloks_earned, problems_solved, qualified)
		 VALUES ($1, $2, $3::int, 1, $3::int >= $4::int)
		 ON CONFLICT (user_id, week_start_date) DO UPDATE SET
		    bloks_earned = weekly_progress.bloks_earned + EXCLUDED.bloks_earned,
		    problems_solved = weekly_progress.problems_solved + 1,
		    qualified = weekly_progress.qualified
		        OR weekly_progress.bloks_earned + EXCLUDED.bloks_earned >= $4::int,
		    updated_at = NOW()
		 RETURNING bloks_earned, problems_solved, qualified`,
		userID, week.String(), bloks, threshold,
	).Scan(&t.BloksEarned, &t.ProblemsSolved, &t.Qualified)
	if err != nil {
		return WeeklyTotals{}, fmt.Errorf("upsert weekly progress: %w", err)
	}
	return t, nil
}

func (s *Store) GetWeeklyProgress(ctx context.Context, userID uuid.UUID, week gamification.WeekKey) (*models.WeeklyProgress, error) {
	var w models.WeeklyProgress
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, week_start_date::text, bloks_earned, problems_solved,
		        qualified, counted_in_total, streak_updated
		 FROM weekly_progress WHERE user_id = $1 AND week_start_date = $2`,
		userID, week.String(),
	).Scan(&w.UserID, &w.WeekStartDate, &w.BloksEarned, &w.ProblemsSolved,
		&w.Qualified, &w.CountedInTotal, &w.StreakUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly progress: %w", err)
	}
	return &w, nil
}

func (s *Store) AddTrackProgress(ctx context.Context, userID, trackID uuid.UUID, bloks int, solvedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO track_progress (user_id, track_id, problems_solved, total_bloks_earned, last_solved_at)
		 VALUES ($1, $2, 1, $3, $4)
		 ON CONFLICT (user_id, track_id) DO UPDATE SET
		    problems_solved = track_progress.problems_solved + 1,
		    total_bloks_earned = track_progress.total_bloks_earned + EXCLUDED.total_bloks_earned,
		    last_solved_at = GREATEST(track_progress.last_solved_at, EXCLUDED.last_solved_at)`,
		userID, trackID, bloks, solvedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert track progress: %w", err)
	}
	return nil
}

// ── Catalog ─────────────────────────────────────────────

const trackColumns = `id, name, display_name, description, color, daily_limit, coming_soon, sort_order`

func scanTrack(row interface{ Scan(...any) error }) (*models.Track, error) {
	var t models.Track
	var limit sql.NullInt32
	if err := row.Scan(&t.ID, &t.Name, &t.DisplayName, &t.Description, &t.Color,
		&limit, &t.ComingSoon, &t.SortOrder); err != nil {
		return nil, err
	}
	if limit.Valid {
		n := int(limit.Int32)
		t.DailyLimit = &n
	}
	return &t, nil
}

func (s *Store) GetProblem(ctx context.Context, problemID uuid.UUID) (*models.Problem, error) {
	var p models.Problem
	var section sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, track_id, title, slug, difficulty, bloks, section, sort_order
		 FROM problems WHERE id = $1`,
		problemID,
	).Scan(&p.ID, &p.TrackID, &p.Title, &p.Slug, &p.Difficulty, &p.Bloks, &section, &p.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProblemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get problem: %w", err)
	}
	p.Section = section.String
	return &p, nil
}

func (s *Store) GetTrack(ctx context.Context, trackID uuid.UUID) (*models.Track, error) {
	t, err := scanTrack(s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE id = $1`, trackID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	return t, nil
}

func (s *Store) GetTrackByName(ctx context.Context, name string) (*models.Track, error) {
	t, err := scanTrack(s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track by name: %w", err)
	}
	return t, nil
}

func (s *Store) ListTracks(ctx context.Context) ([]models.Track, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trackColumns+` FROM tracks ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

func (s *Store) UpsertTracks(ctx context.Context, defs []catalog.TrackDef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin track upsert: %w", err)
	}
	defer tx.Rollback()

	for _, d := range defs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tracks (name, display_name, description, color, daily_limit, coming_soon, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (name) DO UPDATE SET
			    display_name = EXCLUDED.display_name,
			    description = EXCLUDED.description,
			    color = EXCLUDED.color,
			    daily_limit = EXCLUDED.daily_limit,
			    coming_soon = EXCLUDED.coming_soon,
			    sort_order = EXCLUDED.sort_order`,
			d.Name, d.DisplayName, d.Description, d.Color, d.DailyLimit, d.ComingSoon, d.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("upsert track %s: %w", d.Name, err)
		}
	}
	return tx.Commit()
}

// ── Progress Reads ──────────────────────────────────────

func (s *Store) ProblemsWithProgress(ctx context.Context, trackID, userID uuid.UUID) ([]models.ProblemProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.track_id, p.title, p.slug, p.difficulty, p.bloks,
		        COALESCE(p.section, ''), p.sort_order,
		        first.submitted_at, COALESCE(first.bloks_earned, 0)
		 FROM problems p
		 LEFT JOIN LATERAL (
		     SELECT sub.submitted_at, sub.bloks_earned
		     FROM submissions sub
		     WHERE sub.problem_id = p.id AND sub.user_id = $2
		     ORDER BY sub.submitted_at
		     LIMIT 1
		 ) first ON TRUE
		 WHERE p.track_id = $1
		 ORDER BY p.sort_order, p.title`,
		trackID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get problems with progress: %w", err)
	}
	defer rows.Close()

	problems := []models.ProblemProgress{}
	for rows.Next() {
		var p models.ProblemProgress
		var completedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.TrackID, &p.Title, &p.Slug, &p.Difficulty, &p.Bloks,
			&p.Section, &p.SortOrder, &completedAt, &p.BloksEarnedFromThis); err != nil {
			return nil, fmt.Errorf("scan problem progress: %w", err)
		}
		if completedAt.Valid {
			t := completedAt.Time
			p.IsCompleted = true
			p.CompletedAt = &t
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

func (s *Store) LastSubmissionAt(ctx context.Context, userID uuid.UUID) (time.Time, bool, error) {
	var at sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(submitted_at) FROM submissions WHERE user_id = $1`,
		userID,
	).Scan(&at)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get last submission: %w", err)
	}
	return at.Time, at.Valid, nil
}

func (s *Store) CountSubmissionsSince(ctx context.Context, userID, trackID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM submissions sub
		 JOIN problems p ON p.id = sub.problem_id
		 WHERE sub.user_id = $1 AND p.track_id = $2 AND sub.submitted_at >= $3`,
		userID, trackID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

func (s *Store) SolvedProblems(ctx context.Context, userID uuid.UUID, limit int) ([]models.SolvedProblem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.difficulty, t.name, sub.bloks_earned, sub.submitted_at
		 FROM submissions sub
		 JOIN problems p ON p.id = sub.problem_id
		 JOIN tracks t ON t.id = p.track_id
		 WHERE sub.user_id = $1
		 ORDER BY sub.submitted_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list solved problems: %w", err)
	}
	defer rows.Close()

	solved := []models.SolvedProblem{}
	for rows.Next() {
		var sp models.SolvedProblem
		if err := rows.Scan(&sp.ProblemID, &sp.Title, &sp.Difficulty, &sp.TrackName,
			&sp.BloksEarned, &sp.SolvedAt); err != nil {
			return nil, fmt.Errorf("scan solved problem: %w", err)
		}
		solved = append(solved, sp)
	}
	return solved, rows.Err()
}
