// Package rubric loads and validates call-quality rubric definitions.
//
// Two rubric shapes are supported, both YAML:
//
//   - granular: categories, each holding weighted sub-parameters scored
//     from 0 to max_points by the oracle
//   - discrete: a flat criteria list, each with a level table mapping
//     yes/no/na answers to point values
//
// A single file declares exactly one shape. The loader rejects unknown
// keys so schema typos surface at load time instead of silently scoring
// against a truncated rubric.
package rubric

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Mode identifies which scoring contract a rubric file declares.
type Mode string

const (
	// ModeGranular scores each sub-parameter from 0 to its max_points.
	ModeGranular Mode = "granular"
	// ModeDiscrete scores each criterion through a yes/no/na level table.
	ModeDiscrete Mode = "discrete"
)

// Rubric is the top-level structure of a rubric YAML file.
// Exactly one of Categories (granular) or Criteria (discrete) is set.
type Rubric struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	TotalPoints int    `yaml:"total_points"`

	Categories []Category  `yaml:"categories"`
	Criteria   []Criterion `yaml:"criteria"`
}

// Category groups related sub-parameters under a declared point budget.
//
// MaxPoints is the category's declared maximum as written in the file. It
// may exceed the sum achievable once fatal parameters are excluded from
// awarded totals; that asymmetry is part of the scoring contract, so the
// validator reports a mismatch against member max_points as a warning only.
type Category struct {
	ID            string      `yaml:"id"`
	Name          string      `yaml:"name"`
	Description   string      `yaml:"description"`
	MaxPoints     int         `yaml:"max_points"`
	SubParameters []Parameter `yaml:"sub_parameters"`
}

// Parameter is one granular-mode scored line item.
type Parameter struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	MaxPoints   int    `yaml:"max_points"`
	Description string `yaml:"description"`

	// ScoringGuide maps a point value (as written in the file) to the
	// behavior that earns it. Rendered into the oracle prompt verbatim.
	ScoringGuide     map[string]string `yaml:"scoring_guide"`
	EvidenceRequired []string          `yaml:"evidence_required"`
	ValidationRules  []string          `yaml:"validation_rules"`
}

// Criterion is one discrete-mode scored line item.
type Criterion struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Category    string  `yaml:"category"`
	MaxPoints   int     `yaml:"max_points"`
	Description string  `yaml:"description"`
	Levels      []Level `yaml:"levels"`
}

// Level maps one discrete answer label to its point value.
type Level struct {
	Label       string   `yaml:"label"`
	Points      int      `yaml:"points"`
	Descriptors []string `yaml:"descriptors"`
}

// Mode reports which scoring contract the rubric declares.
func (r *Rubric) Mode() Mode {
	if len(r.Categories) > 0 {
		return ModeGranular
	}
	return ModeDiscrete
}

// Load reads and parses a rubric YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func Load(path string) (*Rubric, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rubric: open %q: %w", path, err)
	}
	defer f.Close()

	r, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("rubric: parse %q: %w", path, err)
	}
	return r, nil
}

// LoadFromReader parses rubric YAML from an [io.Reader] and validates it.
// The reader is consumed entirely; the caller is responsible for closing it.
func LoadFromReader(rd io.Reader) (*Rubric, error) {
	var r Rubric
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true) // reject unknown keys to catch schema typos
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("rubric: decode yaml: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks structural invariants: exactly one shape declared,
// unique criterion ids, non-negative point values, and for discrete mode
// a non-empty level table per criterion. A category whose declared
// max_points differs from the sum of its members is logged as a warning,
// not rejected.
func (r *Rubric) Validate() error {
	var errs []error

	hasCategories := len(r.Categories) > 0
	hasCriteria := len(r.Criteria) > 0
	switch {
	case !hasCategories && !hasCriteria:
		errs = append(errs, errors.New("rubric: no categories and no criteria declared"))
	case hasCategories && hasCriteria:
		errs = append(errs, errors.New("rubric: both categories and criteria declared, expected exactly one shape"))
	}

	if r.TotalPoints < 0 {
		errs = append(errs, fmt.Errorf("rubric: total_points must not be negative, got %d", r.TotalPoints))
	}

	seen := map[string]bool{}
	checkID := func(id, kind string) {
		if id == "" {
			errs = append(errs, fmt.Errorf("rubric: %s with empty id", kind))
			return
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("rubric: duplicate id %q", id))
		}
		seen[id] = true
	}

	for ci := range r.Categories {
		cat := &r.Categories[ci]
		if cat.MaxPoints < 0 {
			errs = append(errs, fmt.Errorf("rubric: category %q max_points must not be negative", cat.ID))
		}
		memberSum := 0
		for pi := range cat.SubParameters {
			p := &cat.SubParameters[pi]
			checkID(p.ID, "sub-parameter")
			if p.MaxPoints < 0 {
				errs = append(errs, fmt.Errorf("rubric: sub-parameter %q max_points must not be negative", p.ID))
			}
			memberSum += p.MaxPoints
		}
		if cat.MaxPoints != memberSum {
			slog.Warn("rubric category max differs from member sum",
				"category", cat.ID, "declared_max", cat.MaxPoints, "member_sum", memberSum)
		}
	}

	for ci := range r.Criteria {
		c := &r.Criteria[ci]
		checkID(c.ID, "criterion")
		if c.MaxPoints < 0 {
			errs = append(errs, fmt.Errorf("rubric: criterion %q max_points must not be negative", c.ID))
		}
		if len(c.Levels) == 0 {
			errs = append(errs, fmt.Errorf("rubric: criterion %q has no levels", c.ID))
		}
		for li := range c.Levels {
			if c.Levels[li].Label == "" {
				errs = append(errs, fmt.Errorf("rubric: criterion %q has a level with an empty label", c.ID))
			}
		}
	}

	return errors.Join(errs...)
}
