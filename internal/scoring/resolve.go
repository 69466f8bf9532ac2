package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/callscope/callaudit/internal/rubric"
)

// Criterion is the scoring view of one rubric line item: the declared
// identity and point budget, the discrete level table when applicable,
// and the out-of-band fatal flag from the [FatalPolicy].
type Criterion struct {
	ID        string
	Name      string
	Category  string
	MaxPoints int
	Levels    []rubric.Level
	IsFatal   bool
}

// Entry is one validated per-criterion score.
//
// Invariants: IsNA implies Score == MaxPoints (granular) or the level table's
// na points (discrete); otherwise Score is the raw value clamped into
// [0, MaxPoints]. RawScore keeps the oracle's original assertion for audit.
type Entry struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Score           int      `json:"score"`
	MaxPoints       int      `json:"max_points"`
	Percentage      float64  `json:"percentage"`
	IsNA            bool     `json:"is_na"`
	IsFatal         bool     `json:"is_fatal"`
	Response        string   `json:"response,omitempty"`
	Rationale       string   `json:"rationale"`
	Evidence        []string `json:"evidence"`
	ValidationNotes string   `json:"validation_notes,omitempty"`

	RawScore int `json:"-"`
}

// Resolve normalizes one untrusted judgment into a bounded [Entry].
// It never fails: out-of-range values clamp with a logged warning and
// unrecognized discrete answers degrade to "na".
func Resolve(c Criterion, j Judgment) Entry {
	e := Entry{
		ID:        c.ID,
		Name:      c.Name,
		MaxPoints: c.MaxPoints,
		IsFatal:   c.IsFatal,
		Evidence:  []string{},
	}

	switch v := j.(type) {
	case Granular:
		e.RawScore = v.Score
		e.Rationale = v.Rationale
		e.ValidationNotes = v.ValidationNotes
		if len(v.Evidence) > 0 {
			e.Evidence = v.Evidence
		}

		switch {
		case v.Score == -1:
			slog.Info("criterion marked not applicable, awarding full points",
				"criterion", c.ID, "max_points", c.MaxPoints)
			e.Score = c.MaxPoints
			e.IsNA = true
		case v.Score < 0:
			slog.Warn("negative score clamped to zero", "criterion", c.ID, "score", v.Score)
			e.Score = 0
		case v.Score > c.MaxPoints:
			slog.Warn("score above maximum clamped",
				"criterion", c.ID, "score", v.Score, "max_points", c.MaxPoints)
			e.Score = c.MaxPoints
		default:
			e.Score = v.Score
		}

	case Discrete:
		answer := strings.ToLower(strings.TrimSpace(v.Answer))
		if !hasLevel(c.Levels, answer) {
			if answer != "" {
				slog.Warn("unrecognized answer, defaulting to na", "criterion", c.ID, "answer", answer)
			}
			answer = "na"
		}
		e.Response = strings.ToUpper(answer)
		e.IsNA = answer == "na"

		var base string
		for _, lv := range c.Levels {
			if strings.EqualFold(lv.Label, answer) {
				e.Score = lv.Points
				if len(lv.Descriptors) > 0 {
					base = fmt.Sprintf("Scored '%s': %s", e.Response, strings.Join(lv.Descriptors, ", "))
				}
				break
			}
		}
		e.RawScore = e.Score

		reason := strings.TrimSpace(v.Rationale)
		switch {
		case reason != "" && base != "":
			e.Rationale = base + ". " + reason
		case reason != "":
			e.Rationale = reason
		default:
			e.Rationale = base
		}
		if v.EvidenceSnippet != "" {
			e.Evidence = []string{v.EvidenceSnippet}
		}
	}

	if c.MaxPoints > 0 {
		e.Percentage = math.Round(float64(e.Score)/float64(c.MaxPoints)*100*100) / 100
	}
	return e
}

func hasLevel(levels []rubric.Level, answer string) bool {
	for _, lv := range levels {
		if strings.EqualFold(lv.Label, answer) {
			return true
		}
	}
	return false
}
