package submissions

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bloks-dev/backend/internal/catalog"
	"github.com/bloks-dev/backend/internal/models"
)

// ExtrasLabel groups problems without a "Day N" section.
const ExtrasLabel = "Extras"

var dayLabel = regexp.MustCompile(`^Day (\d+)$`)

// dayNumber returns N for a "Day N" section, or 0.
func dayNumber(section string) int {
	m := dayLabel.FindStringSubmatch(strings.TrimSpace(section))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// DayLabelFromSlug maps a URL slug such as "day-3" back to its section
// label "Day 3".
func DayLabelFromSlug(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == slug.Make(ExtrasLabel) {
		return ExtrasLabel, true
	}
	label := cases.Title(language.English).String(strings.ReplaceAll(s, "-", " "))
	n := dayNumber(label)
	if n == 0 {
		return "", false
	}
	return "Day " + strconv.Itoa(n), true
}

// GroupByDay buckets problems by their "Day N" section, ordered by day
// number with the Extras group last. Groups keep problem order.
func GroupByDay(problems []models.ProblemProgress, days []catalog.DayDef) []models.DayGroup {
	index := map[string]int{}
	var groups []models.DayGroup
	for _, p := range problems {
		label := strings.TrimSpace(p.Section)
		n := dayNumber(label)
		if n == 0 {
			label = ExtrasLabel
		}
		i, seen := index[label]
		if !seen {
			g := models.DayGroup{Label: label, Slug: slug.Make(label), Day: n}
			for _, d := range days {
				if d.Label == label {
					g.Title, g.Subtitle = d.Title, d.Subtitle
				}
			}
			groups = append(groups, g)
			i = len(groups) - 1
			index[label] = i
		}
		groups[i].Problems = append(groups[i].Problems, p)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Day, groups[j].Day
		if a == 0 || b == 0 {
			return b == 0 && a != 0
		}
		return a < b
	})
	for i := range groups {
		groups[i].Stats = Stats(groups[i].Problems)
	}
	return groups
}

// hasDays reports whether any problem carries a "Day N" section.
func hasDays(problems []models.ProblemProgress) bool {
	for _, p := range problems {
		if dayNumber(p.Section) > 0 {
			return true
		}
	}
	return false
}

// Stats counts completed problems; percentage is rounded to the nearest integer.
func Stats(problems []models.ProblemProgress) models.TrackStats {
	st := models.TrackStats{Total: len(problems)}
	for _, p := range problems {
		if p.IsCompleted {
			st.Completed++
		}
	}
	if st.Total > 0 {
		st.Percentage = int(math.Round(float64(st.Completed) * 100 / float64(st.Total)))
	}
	return st
}
