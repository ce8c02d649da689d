package submissions

import (
	"testing"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/models"
)

func problem(title, section string, done bool) models.ProblemProgress {
	return models.ProblemProgress{
		Problem:     models.Problem{Title: title, Section: section},
		IsCompleted: done,
	}
}

func TestGroupByDay(t *testing.T) {
	problems := []models.ProblemProgress{
		problem("fib", "Day 1", true),
		problem("bonus", "", false),
		problem("matrix", "Day 10", false),
		problem("merge sort", "Day 2", true),
		problem("factorial", "Day 1", false),
		problem("warmup", "Warmups", true),
	}
	days := []catalog.DayDef{{Label: "Day 1", Title: "Recursion Foundation", Subtitle: "The Call Stack & Math"}}

	groups := GroupByDay(problems, days)

	wantLabels := []string{"Day 1", "Day 2", "Day 10", ExtrasLabel}
	if len(groups) != len(wantLabels) {
		t.Fatalf("got %d groups, want %d", len(groups), len(wantLabels))
	}
	for i, want := range wantLabels {
		if groups[i].Label != want {
			t.Errorf("groups[%d].Label = %q, want %q", i, groups[i].Label, want)
		}
	}

	day1 := groups[0]
	if day1.Slug != "day-1" || day1.Day != 1 {
		t.Errorf("day 1 slug/day = %q/%d", day1.Slug, day1.Day)
	}
	if day1.Title != "Recursion Foundation" || day1.Subtitle != "The Call Stack & Math" {
		t.Errorf("day 1 metadata = %q / %q", day1.Title, day1.Subtitle)
	}
	if day1.Problems[0].Title != "fib" || day1.Problems[1].Title != "factorial" {
		t.Errorf("day 1 lost problem order: %v", day1.Problems)
	}
	if day1.Stats != (models.TrackStats{Total: 2, Completed: 1, Percentage: 50}) {
		t.Errorf("day 1 stats = %+v", day1.Stats)
	}

	extras := groups[3]
	if extras.Slug != "extras" || extras.Day != 0 || len(extras.Problems) != 2 {
		t.Errorf("extras = %+v", extras)
	}
}

func TestGroupByDayEmpty(t *testing.T) {
	if groups := GroupByDay(nil, nil); len(groups) != 0 {
		t.Errorf("GroupByDay(nil) = %v, want empty", groups)
	}
}

func TestDayLabelFromSlug(t *testing.T) {
	tests := []struct {
		slug   string
		want   string
		wantOK bool
	}{
		{"day-1", "Day 1", true},
		{"day-12", "Day 12", true},
		{"Day-3", "Day 3", true},
		{"day-03", "Day 3", true},
		{"extras", ExtrasLabel, true},
		{"day", "", false},
		{"day-x", "", false},
		{"week-1", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := DayLabelFromSlug(tt.slug)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("DayLabelFromSlug(%q) = %q, %v; want %q, %v", tt.slug, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStats(t *testing.T) {
	tests := []struct {
		name     string
		problems []models.ProblemProgress
		want     models.TrackStats
	}{
		{"empty", nil, models.TrackStats{}},
		{"one of three", []models.ProblemProgress{
			problem("a", "", true), problem("b", "", false), problem("c", "", false),
		}, models.TrackStats{Total: 3, Completed: 1, Percentage: 33}},
		{"two of three", []models.ProblemProgress{
			problem("a", "", true), problem("b", "", true), problem("c", "", false),
		}, models.TrackStats{Total: 3, Completed: 2, Percentage: 67}},
		{"all", []models.ProblemProgress{
			problem("a", "", true), problem("b", "", true),
		}, models.TrackStats{Total: 2, Completed: 2, Percentage: 100}},
	}

	for _, tt := range tests {
		if got := Stats(tt.problems); got != tt.want {
			t.Errorf("%s: Stats() = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestHasDays(t *testing.T) {
	if hasDays([]models.ProblemProgress{problem("a", "Warmups", false), problem("b", "", false)}) {
		t.Error("hasDays true without any Day N section")
	}
	if !hasDays([]models.ProblemProgress{problem("a", "", false), problem("b", "Day 4", false)}) {
		t.Error("hasDays false with a Day N section")
	}
}
