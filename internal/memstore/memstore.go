// Package memstore is an in-memory implementation of the gamification and
// submissions repositories. Every method holds one mutex, so each call is
// atomic in the way the Postgres statements are.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/gamification"
	"github.com/bloks-dev/backend/internal/models"
	"github.com/bloks-dev/backend/internal/submissions"
)

var (
	_ gamification.StreakRepository = (*Store)(nil)
	_ gamification.BadgeRepository  = (*Store)(nil)
	_ submissions.Repository        = (*Store)(nil)
)

type weekKey struct {
	user uuid.UUID
	week string
}

type trackKey struct {
	user  uuid.UUID
	track uuid.UUID
}

type badgeRow struct {
	badge models.Badge
	def   catalog.BadgeDef
}

type Store struct {
	mu sync.Mutex

	tracks      []models.Track
	problems    map[uuid.UUID]models.Problem
	submissions []models.Submission
	profiles    map[uuid.UUID]models.UserProfile
	weeks       map[weekKey]models.WeeklyProgress
	trackStats  map[trackKey]models.TrackProgress
	badges      []badgeRow
	userBadges  map[uuid.UUID][]models.UserBadge

	failures  map[string]error
	conflicts int
}

func New() *Store {
	return &Store{
		problems:   make(map[uuid.UUID]models.Problem),
		profiles:   make(map[uuid.UUID]models.UserProfile),
		weeks:      make(map[weekKey]models.WeeklyProgress),
		trackStats: make(map[trackKey]models.TrackProgress),
		userBadges: make(map[uuid.UUID][]models.UserBadge),
		failures:   make(map[string]error),
	}
}

// ── Fault injection ─────────────────────────────────────

// Fail makes every later call to the named method return err. A nil err
// clears the failure.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

// Conflict makes the next n compare-and-swap writes lose their race.
func (s *Store) Conflict(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

func (s *Store) fail(method string) error {
	return s.failures[method]
}

// ── Fixtures ────────────────────────────────────────────

// AddProblem stores p under the named track and returns it with its id.
func (s *Store) AddProblem(trackName string, p models.Problem) models.Problem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for _, t := range s.tracks {
		if t.Name == trackName {
			p.TrackID = t.ID
		}
	}
	s.problems[p.ID] = p
	return p
}

func (s *Store) PutProfile(p models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

func (s *Store) PutWeek(w models.WeeklyProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weeks[weekKey{w.UserID, w.WeekStartDate}] = w
}

// PutSubmission stores sub without touching any aggregate.
func (s *Store) PutSubmission(sub models.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	s.submissions = append(s.submissions, sub)
}

func (s *Store) Week(userID uuid.UUID, week gamification.WeekKey) (models.WeeklyProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weeks[weekKey{userID, week.String()}]
	return w, ok
}

func (s *Store) TrackProgress(userID, trackID uuid.UUID) (models.TrackProgress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tp, ok := s.trackStats[trackKey{userID, trackID}]
	return tp, ok
}

func (s *Store) SubmissionCount(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sub := range s.submissions {
		if sub.UserID == userID {
			n++
		}
	}
	return n
}

// ── Submissions ─────────────────────────────────────────

func (s *Store) InsertSubmission(_ context.Context, sub models.Submission, firstOnly bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertSubmission"); err != nil {
		return false, err
	}
	if firstOnly {
		for _, existing := range s.submissions {
			if existing.UserID == sub.UserID && existing.ProblemID == sub.ProblemID {
				return false, nil
			}
		}
	}
	s.submissions = append(s.submissions, sub)
	return true, nil
}

func (s *Store) ProblemTrackID(_ context.Context, problemID uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ProblemTrackID"); err != nil {
		return uuid.Nil, err
	}
	p, ok := s.problems[problemID]
	if !ok {
		return uuid.Nil, submissions.ErrProblemNotFound
	}
	return p.TrackID, nil
}

// ── Profiles ────────────────────────────────────────────

func (s *Store) IncrementUserStats(_ context.Context, userID uuid.UUID, bloks int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("IncrementUserStats"); err != nil {
		return err
	}
	p := s.profiles[userID]
	p.UserID = userID
	p.TotalBloksLifetime += bloks
	p.TotalProblemsSolved++
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	s.profiles[userID] = p
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetProfile"); err != nil {
		return nil, err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, gamification.ErrProfileNotFound
	}
	return &p, nil
}

func (s *Store) CreateProfile(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateProfile"); err != nil {
		return err
	}
	if _, ok := s.profiles[userID]; !ok {
		s.profiles[userID] = models.UserProfile{UserID: userID, UpdatedAt: time.Now().UTC()}
	}
	return nil
}

func (s *Store) CompareAndSwapUserStats(_ context.Context, userID uuid.UUID, expectedVersion int64, totalBloks, totalSolved int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CompareAndSwapUserStats"); err != nil {
		return false, err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return false, nil
	}
	if s.conflicts > 0 {
		s.conflicts--
		p.Version++
		s.profiles[userID] = p
		return false, nil
	}
	if p.Version != expectedVersion {
		return false, nil
	}
	p.TotalBloksLifetime = totalBloks
	p.TotalProblemsSolved = totalSolved
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	s.profiles[userID] = p
	return true, nil
}

// ── Weekly & Track Aggregates ───────────────────────────

func (s *Store) AddWeeklyProgress(_ context.Context, userID uuid.UUID, week gamification.WeekKey, bloks, threshold int) (submissions.WeeklyTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AddWeeklyProgress"); err != nil {
		return submissions.WeeklyTotals{}, err
	}
	key := weekKey{userID, week.String()}
	w := s.weeks[key]
	w.UserID = userID
	w.WeekStartDate = week.String()
	w.BloksEarned += bloks
	w.ProblemsSolved++
	w.Qualified = w.Qualified || w.BloksEarned >= threshold
	s.weeks[key] = w
	return submissions.WeeklyTotals{
		BloksEarned:    w.BloksEarned,
		ProblemsSolved: w.ProblemsSolved,
		Qualified:      w.Qualified,
	}, nil
}

func (s *Store) GetWeeklyProgress(_ context.Context, userID uuid.UUID, week gamification.WeekKey) (*models.WeeklyProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetWeeklyProgress"); err != nil {
		return nil, err
	}
	w, ok := s.weeks[weekKey{userID, week.String()}]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *Store) AddTrackProgress(_ context.Context, userID, trackID uuid.UUID, bloks int, solvedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AddTrackProgress"); err != nil {
		return err
	}
	key := trackKey{userID, trackID}
	tp := s.trackStats[key]
	tp.UserID = userID
	tp.TrackID = trackID
	tp.ProblemsSolved++
	tp.TotalBloksEarned += bloks
	if tp.LastSolvedAt == nil || solvedAt.After(*tp.LastSolvedAt) {
		t := solvedAt
		tp.LastSolvedAt = &t
	}
	s.trackStats[key] = tp
	return nil
}

// ── Streaks ─────────────────────────────────────────────

func (s *Store) ApplyStreak(_ context.Context, userID uuid.UUID, week, previous gamification.WeekKey, advance func(gamification.StreakState) gamification.StreakState) (gamification.StreakState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ApplyStreak"); err != nil {
		return gamification.StreakState{}, false, err
	}
	key := weekKey{userID, week.String()}
	w, ok := s.weeks[key]
	if !ok || !w.Qualified || w.StreakUpdated {
		return gamification.StreakState{}, false, nil
	}
	p, ok := s.profiles[userID]
	if !ok {
		return gamification.StreakState{}, false, nil
	}

	state := gamification.StreakState{
		PreviousWeekQualified:   s.weeks[weekKey{userID, previous.String()}].Qualified,
		ConsecutiveWeeks:        p.ConsecutiveQualifiedWeeks,
		HighestConsecutiveWeeks: p.HighestConsecutiveWeeks,
		TotalQualifiedWeeks:     p.TotalQualifiedWeeks,
		CountedInTotal:          w.CountedInTotal,
	}
	next := advance(state)

	p.ConsecutiveQualifiedWeeks = next.ConsecutiveWeeks
	p.HighestConsecutiveWeeks = next.HighestConsecutiveWeeks
	p.TotalQualifiedWeeks = next.TotalQualifiedWeeks
	p.Version++
	s.profiles[userID] = p

	w.StreakUpdated = true
	w.CountedInTotal = w.CountedInTotal || next.CountedInTotal
	s.weeks[key] = w
	return next, true, nil
}

func (s *Store) PendingStreakWeeks(_ context.Context, limit int) ([]models.WeeklyProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("PendingStreakWeeks"); err != nil {
		return nil, err
	}
	var pending []models.WeeklyProgress
	for _, w := range s.weeks {
		if !w.Qualified || w.StreakUpdated || s.supersededLocked(w) {
			continue
		}
		pending = append(pending, w)
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].WeekStartDate != pending[j].WeekStartDate {
			return pending[i].WeekStartDate < pending[j].WeekStartDate
		}
		return pending[i].UserID.String() < pending[j].UserID.String()
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) supersededLocked(w models.WeeklyProgress) bool {
	for _, other := range s.weeks {
		if other.UserID == w.UserID && other.WeekStartDate > w.WeekStartDate && other.StreakUpdated {
			return true
		}
	}
	return false
}

// ── Badges ──────────────────────────────────────────────

func (s *Store) SolvedCountByDifficulty(_ context.Context, userID uuid.UUID) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SolvedCountByDifficulty"); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, sub := range s.submissions {
		if sub.UserID != userID {
			continue
		}
		if p, ok := s.problems[sub.ProblemID]; ok {
			counts[p.Difficulty]++
		}
	}
	return counts, nil
}

func (s *Store) EarnedBadgeIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("EarnedBadgeIDs"); err != nil {
		return nil, err
	}
	ids := []uuid.UUID{}
	for _, ub := range s.userBadges[userID] {
		ids = append(ids, ub.BadgeID)
	}
	return ids, nil
}

func (s *Store) BadgesByName(_ context.Context, names []string) ([]models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("BadgesByName"); err != nil {
		return nil, err
	}
	var out []models.Badge
	for _, row := range s.badges {
		if slices.Contains(names, row.badge.Name) {
			out = append(out, row.badge)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *Store) AwardBadge(_ context.Context, userID, badgeID uuid.UUID, earnedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AwardBadge"); err != nil {
		return false, err
	}
	for _, row := range s.badges {
		if row.badge.ID == badgeID {
			if err := s.fail("AwardBadge:" + row.badge.Name); err != nil {
				return false, err
			}
		}
	}
	for _, ub := range s.userBadges[userID] {
		if ub.BadgeID == badgeID {
			return false, nil
		}
	}
	s.userBadges[userID] = append(s.userBadges[userID], models.UserBadge{
		UserID: userID, BadgeID: badgeID, EarnedAt: earnedAt,
	})
	return true, nil
}

func (s *Store) ListUserBadges(_ context.Context, userID uuid.UUID) ([]models.EarnedBadge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListUserBadges"); err != nil {
		return nil, err
	}
	out := []models.EarnedBadge{}
	for _, ub := range s.userBadges[userID] {
		for _, row := range s.badges {
			if row.badge.ID == ub.BadgeID {
				out = append(out, models.EarnedBadge{Badge: row.badge, EarnedAt: ub.EarnedAt})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EarnedAt.Equal(out[j].EarnedAt) {
			return out[i].EarnedAt.After(out[j].EarnedAt)
		}
		return out[i].SortOrder < out[j].SortOrder
	})
	return out, nil
}

func (s *Store) UpsertBadges(_ context.Context, defs []catalog.BadgeDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertBadges"); err != nil {
		return err
	}
	for _, d := range defs {
		b := d.Badge()
		idx := slices.IndexFunc(s.badges, func(r badgeRow) bool { return r.badge.Name == d.Name })
		if idx >= 0 {
			b.ID = s.badges[idx].badge.ID
			s.badges[idx] = badgeRow{badge: b, def: d}
			continue
		}
		b.ID = uuid.New()
		s.badges = append(s.badges, badgeRow{badge: b, def: d})
	}
	return nil
}

// ── Catalog ─────────────────────────────────────────────

func (s *Store) GetProblem(_ context.Context, problemID uuid.UUID) (*models.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetProblem"); err != nil {
		return nil, err
	}
	p, ok := s.problems[problemID]
	if !ok {
		return nil, submissions.ErrProblemNotFound
	}
	return &p, nil
}

func (s *Store) GetTrack(_ context.Context, trackID uuid.UUID) (*models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetTrack"); err != nil {
		return nil, err
	}
	for _, t := range s.tracks {
		if t.ID == trackID {
			return &t, nil
		}
	}
	return nil, submissions.ErrTrackNotFound
}

func (s *Store) GetTrackByName(_ context.Context, name string) (*models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetTrackByName"); err != nil {
		return nil, err
	}
	for _, t := range s.tracks {
		if t.Name == name {
			return &t, nil
		}
	}
	return nil, submissions.ErrTrackNotFound
}

func (s *Store) ListTracks(_ context.Context) ([]models.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListTracks"); err != nil {
		return nil, err
	}
	out := slices.Clone(s.tracks)
	if out == nil {
		out = []models.Track{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) UpsertTracks(_ context.Context, defs []catalog.TrackDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertTracks"); err != nil {
		return err
	}
	for _, d := range defs {
		t := d.Track()
		idx := slices.IndexFunc(s.tracks, func(existing models.Track) bool { return existing.Name == d.Name })
		if idx >= 0 {
			t.ID = s.tracks[idx].ID
			s.tracks[idx] = t
			continue
		}
		t.ID = uuid.New()
		s.tracks = append(s.tracks, t)
	}
	return nil
}

// ── Progress Reads ──────────────────────────────────────

func (s *Store) ProblemsWithProgress(_ context.Context, trackID, userID uuid.UUID) ([]models.ProblemProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ProblemsWithProgress"); err != nil {
		return nil, err
	}
	out := []models.ProblemProgress{}
	for _, p := range s.problems {
		if p.TrackID != trackID {
			continue
		}
		pp := models.ProblemProgress{Problem: p}
		for _, sub := range s.submissions {
			if sub.UserID != userID || sub.ProblemID != p.ID {
				continue
			}
			if pp.CompletedAt == nil || sub.SubmittedAt.Before(*pp.CompletedAt) {
				at := sub.SubmittedAt
				pp.IsCompleted = true
				pp.CompletedAt = &at
				pp.BloksEarnedFromThis = sub.BloksEarned
			}
		}
		out = append(out, pp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (s *Store) LastSubmissionAt(_ context.Context, userID uuid.UUID) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("LastSubmissionAt"); err != nil {
		return time.Time{}, false, err
	}
	var last time.Time
	found := false
	for _, sub := range s.submissions {
		if sub.UserID == userID && (!found || sub.SubmittedAt.After(last)) {
			last = sub.SubmittedAt
			found = true
		}
	}
	return last, found, nil
}

func (s *Store) CountSubmissionsSince(_ context.Context, userID, trackID uuid.UUID, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CountSubmissionsSince"); err != nil {
		return 0, err
	}
	n := 0
	for _, sub := range s.submissions {
		p, ok := s.problems[sub.ProblemID]
		if sub.UserID == userID && ok && p.TrackID == trackID && !sub.SubmittedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SolvedProblems(_ context.Context, userID uuid.UUID, limit int) ([]models.SolvedProblem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SolvedProblems"); err != nil {
		return nil, err
	}
	out := []models.SolvedProblem{}
	for _, sub := range s.submissions {
		if sub.UserID != userID {
			continue
		}
		p, ok := s.problems[sub.ProblemID]
		if !ok {
			continue
		}
		trackName := ""
		for _, t := range s.tracks {
			if t.ID == p.TrackID {
				trackName = t.Name
			}
		}
		out = append(out, models.SolvedProblem{
			ProblemID:   p.ID,
			Title:       p.Title,
			Difficulty:  p.Difficulty,
			TrackName:   trackName,
			BloksEarned: sub.BloksEarned,
			SolvedAt:    sub.SubmittedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SolvedAt.After(out[j].SolvedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
