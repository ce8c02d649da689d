package gamification

import (
	"fmt"

	"github.com/bloks-dev/backend/internal/catalog"
)

// Stats is the snapshot of a user's progress that achievements are
// evaluated against.
type Stats struct {
	TotalSolved     int
	TotalPoints     int
	StreakWeeks     int
	DifficultyCount map[string]int
}

// Predicate reports whether an achievement is unlocked for the given stats.
type Predicate func(Stats) bool

// Achievement pairs a badge name with its unlock predicate. Adding an
// achievement means appending one of these; evaluation never branches on ID.
type Achievement struct {
	ID       string
	Unlocked Predicate
}

// RulePredicate turns a declarative threshold rule into a predicate.
func RulePredicate(r catalog.Rule) (Predicate, error) {
	threshold := r.Threshold
	switch r.Metric {
	case catalog.MetricTotalSolved:
		return func(s Stats) bool { return s.TotalSolved >= threshold }, nil
	case catalog.MetricTotalPoints:
		return func(s Stats) bool { return s.TotalPoints >= threshold }, nil
	case catalog.MetricStreakWeeks:
		return func(s Stats) bool { return s.StreakWeeks >= threshold }, nil
	case catalog.MetricDifficultySolved:
		difficulty := r.Difficulty
		return func(s Stats) bool { return s.DifficultyCount[difficulty] >= threshold }, nil
	default:
		return nil, fmt.Errorf("unknown rule metric %q", r.Metric)
	}
}

// AchievementsFromCatalog builds the ordered achievement list from badge
// definitions.
func AchievementsFromCatalog(defs []catalog.BadgeDef) ([]Achievement, error) {
	achievements := make([]Achievement, 0, len(defs))
	for _, d := range defs {
		p, err := RulePredicate(d.Rule)
		if err != nil {
			return nil, fmt.Errorf("badge %s: %w", d.Name, err)
		}
		achievements = append(achievements, Achievement{ID: d.Name, Unlocked: p})
	}
	return achievements, nil
}

// UnlockedAchievements returns the IDs of every achievement whose predicate
// holds, in list order. The caller filters out badges already earned.
func UnlockedAchievements(achievements []Achievement, stats Stats) []string {
	var unlocked []string
	for _, a := range achievements {
		if a.Unlocked(stats) {
			unlocked = append(unlocked, a.ID)
		}
	}
	return unlocked
}
