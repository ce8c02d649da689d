// Package catalog loads the static badge and track definitions the
// progress pipeline evaluates against.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/bloks-dev/backend/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var validate = validator.New()

// Rule metrics understood by the badge evaluator.
const (
	MetricTotalSolved      = "total_solved"
	MetricTotalPoints      = "total_points"
	MetricStreakWeeks      = "streak_weeks"
	MetricDifficultySolved = "difficulty_solved"
)

type Rule struct {
	Metric     string `yaml:"metric" validate:"required,oneof=total_solved total_points streak_weeks difficulty_solved"`
	Difficulty string `yaml:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	Threshold  int    `yaml:"threshold" validate:"gt=0"`
}

type BadgeDef struct {
	Name        string `yaml:"name" validate:"required"`
	DisplayName string `yaml:"display_name" validate:"required"`
	Description string `yaml:"description"`
	BadgeType   string `yaml:"badge_type" validate:"required,oneof=problem_milestone weekly_milestone special"`
	Icon        string `yaml:"icon"`
	Color       string `yaml:"color"`
	SortOrder   int    `yaml:"sort_order"`
	Rule        Rule   `yaml:"rule"`
}

type DayDef struct {
	Label    string `yaml:"label" validate:"required"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
}

type TrackDef struct {
	Name        string   `yaml:"name" validate:"required"`
	DisplayName string   `yaml:"display_name" validate:"required"`
	Description string   `yaml:"description"`
	Color       string   `yaml:"color"`
	SortOrder   int      `yaml:"sort_order"`
	DailyLimit  *int     `yaml:"daily_limit,omitempty" validate:"omitempty,gt=0"`
	ComingSoon  bool     `yaml:"coming_soon"`
	Days        []DayDef `yaml:"days,omitempty" validate:"dive"`
}

type Catalog struct {
	Badges []BadgeDef `yaml:"badges" validate:"required,dive"`
	Tracks []TrackDef `yaml:"tracks" validate:"required,dive"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(c.Badges, func(i, j int) bool { return c.Badges[i].SortOrder < c.Badges[j].SortOrder })
	sort.SliceStable(c.Tracks, func(i, j int) bool { return c.Tracks[i].SortOrder < c.Tracks[j].SortOrder })
	return &c, nil
}

func (c *Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	seen := make(map[string]bool, len(c.Badges))
	for _, b := range c.Badges {
		if seen[b.Name] {
			return fmt.Errorf("invalid catalog: duplicate badge %q", b.Name)
		}
		seen[b.Name] = true
		if b.Rule.Metric == MetricDifficultySolved && b.Rule.Difficulty == "" {
			return fmt.Errorf("invalid catalog: badge %q needs a difficulty", b.Name)
		}
	}
	tracks := make(map[string]bool, len(c.Tracks))
	for _, t := range c.Tracks {
		if tracks[t.Name] {
			return fmt.Errorf("invalid catalog: duplicate track %q", t.Name)
		}
		tracks[t.Name] = true
	}
	return nil
}

func (c *Catalog) Track(name string) (TrackDef, bool) {
	for _, t := range c.Tracks {
		if t.Name == name {
			return t, true
		}
	}
	return TrackDef{}, false
}

// Day returns display metadata for a "Day N" section of a track.
func (t TrackDef) Day(label string) (DayDef, bool) {
	for _, d := range t.Days {
		if d.Label == label {
			return d, true
		}
	}
	return DayDef{}, false
}

// Badge converts the definition to its catalog row shape. The id is
// assigned by the store.
func (b BadgeDef) Badge() models.Badge {
	return models.Badge{
		Name:        b.Name,
		DisplayName: b.DisplayName,
		Description: b.Description,
		BadgeType:   b.BadgeType,
		Icon:        b.Icon,
		Color:       b.Color,
		SortOrder:   b.SortOrder,
	}
}

func (t TrackDef) Track() models.Track {
	return models.Track{
		Name:        t.Name,
		DisplayName: t.DisplayName,
		Description: t.Description,
		Color:       t.Color,
		DailyLimit:  t.DailyLimit,
		ComingSoon:  t.ComingSoon,
		SortOrder:   t.SortOrder,
	}
}
