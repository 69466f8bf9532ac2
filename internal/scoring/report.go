package scoring

import (
	"log/slog"
	"math"

	"github.com/callscope/callaudit/internal/rubric"
)

// CategoryScore aggregates one rubric category. MaxPoints is the
// rubric-declared category maximum, which may include fatal criteria that
// can never count toward Score; that asymmetry keeps the declared budget
// in parity with the rubric total and is part of the contract.
type CategoryScore struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	MaxPoints  int     `json:"max_points"`
	Score      int     `json:"score"`
	Percentage float64 `json:"percentage"`
}

// Report is a compiled scoring run. Immutable after [Compile] returns.
// A triggered fatal gate zeroes TotalScore and Percentage only; every
// entry keeps its individual resolved score for audit.
type Report struct {
	RubricTitle    string          `json:"rubric_title"`
	TotalScore     int             `json:"total_score"`
	TotalPoints    int             `json:"total_points"`
	Percentage     float64         `json:"percentage"`
	CriteriaScores []Entry         `json:"criteria_scores"`
	CategoryScores []CategoryScore `json:"category_scores,omitempty"`
	FatalTriggered bool            `json:"fatal_triggered"`
	FatalCriteria  []string        `json:"fatal_criteria"`
}

// Compile resolves every rubric criterion against the oracle's judgments
// and aggregates category and grand totals. Criterion order follows rubric
// declaration order, never oracle response order; criteria absent from the
// judgments are filled with a default entry, never omitted.
//
// In granular mode, fatal criteria are excluded from awarded totals in
// every case, and any non-NA fatal criterion resolved to zero forces
// TotalScore to zero. TotalPoints is always the rubric's declared budget.
func Compile(r *rubric.Rubric, judgments Judgments, policy FatalPolicy) *Report {
	rep := &Report{
		RubricTitle:   r.Title,
		TotalPoints:   r.TotalPoints,
		FatalCriteria: []string{},
	}

	switch r.Mode() {
	case rubric.ModeGranular:
		compileGranular(r, judgments, policy, rep)
	case rubric.ModeDiscrete:
		compileDiscrete(r, judgments, rep)
	}

	rep.Percentage = percentage(rep.TotalScore, rep.TotalPoints)

	if rep.FatalTriggered {
		slog.Warn("fatal criterion resolved to zero, total score forced to zero",
			"fatal_criteria", rep.FatalCriteria)
	}
	slog.Info("scoring complete",
		"total_score", rep.TotalScore,
		"total_points", rep.TotalPoints,
		"percentage", rep.Percentage,
		"fatal_triggered", rep.FatalTriggered)
	return rep
}

func compileGranular(r *rubric.Rubric, judgments Judgments, policy FatalPolicy, rep *Report) {
	total := 0

	for ci := range r.Categories {
		cat := &r.Categories[ci]
		awarded := 0

		for pi := range cat.SubParameters {
			p := &cat.SubParameters[pi]
			crit := Criterion{
				ID:        p.ID,
				Name:      p.Name,
				Category:  cat.Name,
				MaxPoints: p.MaxPoints,
				IsFatal:   policy.IsFatal(p.ID),
			}

			j, ok := judgments[p.ID]
			if !ok {
				slog.Warn("no judgment returned for criterion, defaulting to zero",
					"criterion", p.ID)
				j = Granular{Score: 0, Rationale: "No rationale provided"}
			}

			entry := Resolve(crit, j)
			rep.CriteriaScores = append(rep.CriteriaScores, entry)

			if entry.IsFatal {
				if !entry.IsNA && entry.Score == 0 {
					rep.FatalCriteria = append(rep.FatalCriteria, entry.ID)
				}
				continue // fatal criteria gate but never count
			}
			awarded += entry.Score
			total += entry.Score
		}

		rep.CategoryScores = append(rep.CategoryScores, CategoryScore{
			ID:         cat.ID,
			Name:       cat.Name,
			MaxPoints:  cat.MaxPoints,
			Score:      awarded,
			Percentage: percentage(awarded, cat.MaxPoints),
		})
	}

	rep.TotalScore = total
	if len(rep.FatalCriteria) > 0 {
		rep.FatalTriggered = true
		rep.TotalScore = 0
	}
}

func compileDiscrete(r *rubric.Rubric, judgments Judgments, rep *Report) {
	total := 0
	for ci := range r.Criteria {
		c := &r.Criteria[ci]
		crit := Criterion{
			ID:        c.ID,
			Name:      c.Name,
			Category:  c.Category,
			MaxPoints: c.MaxPoints,
			Levels:    c.Levels,
		}

		j, ok := judgments[c.ID]
		if !ok {
			slog.Warn("no judgment returned for criterion, defaulting to na", "criterion", c.ID)
			j = Discrete{Answer: "na"}
		}

		entry := Resolve(crit, j)
		rep.CriteriaScores = append(rep.CriteriaScores, entry)
		total += entry.Score
	}
	rep.TotalScore = total
}

func percentage(awarded, possible int) float64 {
	if possible <= 0 {
		return 0
	}
	return math.Round(float64(awarded)/float64(possible)*100*100) / 100
}
