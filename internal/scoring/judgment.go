// Package scoring turns untrusted per-criterion oracle judgments into a
// bounded, auditable score report.
//
// Two scoring modes share one contract: granular judgments carry an
// integer score from 0 to the criterion's max_points, discrete judgments
// carry a yes/no/na answer mapped through the criterion's level table.
// In both modes a not-applicable sentinel awards full credit, out-of-range
// values are clamped with a warning, and missing criteria are filled with
// a default entry so the compiled report always covers the full rubric.
package scoring

// Judgment is one raw per-criterion verdict from the oracle. It is a
// tagged variant: exactly [Granular] or [Discrete]. Callers never branch
// on mode; [Resolve] does.
type Judgment interface {
	isJudgment()
}

// Granular is an oracle verdict in granular mode: an integer score from
// 0 to the criterion's max points, or -1 for not applicable. The score is
// untrusted and is validated by [Resolve].
type Granular struct {
	Score           int
	Rationale       string
	Evidence        []string
	ValidationNotes string
}

func (Granular) isJudgment() {}

// Discrete is an oracle verdict in discrete mode: a yes/no/na answer
// resolved through the criterion's level table. The answer is untrusted;
// unrecognized values degrade to "na".
type Discrete struct {
	Answer          string
	Rationale       string
	EvidenceSnippet string
}

func (Discrete) isJudgment() {}

// Judgments maps criterion id to the oracle's verdict for it.
type Judgments map[string]Judgment
