package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// ErrBadPayload marks an oracle response whose top-level structure cannot
// be decoded at all. Individual malformed entries degrade to defaults
// instead; only a structurally unusable payload aborts the scoring run.
var ErrBadPayload = errors.New("scoring: unparsable oracle payload")

// DecodeGranularPayload parses a raw granular-mode oracle response. The
// payload is treated as adversarial: only the fields the scoring contract
// defines are read, the oracle's echoed max_points is ignored, and an
// entry that fails to decode is replaced by a zero-score default with a
// warning rather than failing the run.
func DecodeGranularPayload(raw []byte) (Judgments, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	out := make(Judgments, len(top))
	for id, msg := range top {
		var e struct {
			Score           *float64 `json:"score"`
			Rationale       string   `json:"rationale"`
			Evidence        []any    `json:"evidence"`
			ValidationNotes string   `json:"validation_notes"`
		}
		if err := json.Unmarshal(msg, &e); err != nil {
			slog.Warn("malformed oracle entry, defaulting to zero score", "criterion", id, "error", err)
			out[id] = Granular{Score: 0, Rationale: "No rationale provided"}
			continue
		}

		score := 0
		if e.Score != nil {
			score = int(math.Round(*e.Score))
		}
		evidence := make([]string, 0, len(e.Evidence))
		for _, ev := range e.Evidence {
			s, ok := ev.(string)
			if !ok {
				slog.Warn("dropping non-string evidence item", "criterion", id)
				continue
			}
			evidence = append(evidence, s)
		}

		out[id] = Granular{
			Score:           score,
			Rationale:       e.Rationale,
			Evidence:        evidence,
			ValidationNotes: e.ValidationNotes,
		}
	}
	return out, nil
}

// DecodeDiscretePayload parses a raw discrete-mode oracle response.
// Entries may be full objects with answer, rationale and evidence fields,
// or bare answer strings; both shapes are accepted. Answers are
// normalized to lower case here and validated against the rubric's level
// table by [Resolve].
func DecodeDiscretePayload(raw []byte) (Judgments, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	out := make(Judgments, len(top))
	for id, msg := range top {
		var e struct {
			Answer          string `json:"answer"`
			Rationale       string `json:"rationale"`
			EvidenceSnippet string `json:"evidence_snippet"`
		}
		if err := json.Unmarshal(msg, &e); err == nil && e.Answer != "" {
			out[id] = Discrete{
				Answer:          strings.ToLower(strings.TrimSpace(e.Answer)),
				Rationale:       e.Rationale,
				EvidenceSnippet: e.EvidenceSnippet,
			}
			continue
		}

		var bare string
		if err := json.Unmarshal(msg, &bare); err == nil {
			out[id] = Discrete{Answer: strings.ToLower(strings.TrimSpace(bare))}
			continue
		}

		slog.Warn("malformed oracle entry, defaulting to na", "criterion", id)
		out[id] = Discrete{Answer: "na"}
	}
	return out, nil
}
