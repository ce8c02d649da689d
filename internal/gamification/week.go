package gamification

import (
	"fmt"
	"time"
)

const weekKeyLayout = "2006-01-02"

// WeekKey identifies a week by the UTC calendar date of its Monday.
type WeekKey string

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// WeekStartOf returns the key of the Monday-based UTC week containing t.
func WeekStartOf(t time.Time) WeekKey {
	day := StartOfDayUTC(t)
	monday := day.AddDate(0, 0, -int(day.Weekday()-time.Monday+7)%7)
	return WeekKey(monday.Format(weekKeyLayout))
}

// CurrentWeekStart returns the key of the week containing now().
func CurrentWeekStart(now Clock) WeekKey {
	if now == nil {
		now = time.Now
	}
	return WeekStartOf(now())
}

// StartOfDayUTC truncates t to midnight UTC.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseWeekKey(s string) (WeekKey, error) {
	t, err := time.Parse(weekKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("parse week key %q: %w", s, err)
	}
	if t.Weekday() != time.Monday {
		return "", fmt.Errorf("week key %q is not a monday", s)
	}
	return WeekKey(s), nil
}

func (k WeekKey) String() string { return string(k) }

// Time returns midnight UTC of the week's Monday. An invalid key yields the zero time.
func (k WeekKey) Time() time.Time {
	t, err := time.Parse(weekKeyLayout, string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Previous returns the key seven days earlier.
func (k WeekKey) Previous() WeekKey {
	return WeekKey(k.Time().AddDate(0, 0, -7).Format(weekKeyLayout))
}
