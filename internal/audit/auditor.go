// Package audit orchestrates a scoring run: it assembles the evaluation
// prompt from the transcript and knowledge context, queries the LLM oracle,
// decodes the untrusted judgment payload, and compiles the final report.
//
// The oracle is treated as an evidence extractor, never as an arithmetic
// authority: all totals, clamping, NA resolution, and the fatal gate are
// computed locally by the scoring package. A phonetic brand cross-check
// flags judgments that credit a brand mention the transcript text does not
// support.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/callscope/callaudit/internal/rubric"
	"github.com/callscope/callaudit/internal/scoring"
	"github.com/callscope/callaudit/internal/segment"
	"github.com/callscope/callaudit/pkg/provider/llm"
)

// oracleTemperature keeps scoring near-deterministic across runs.
const oracleTemperature = 0.1

// ErrEmptyTranscript is returned when there is no transcript text to score.
var ErrEmptyTranscript = errors.New("audit: transcript is empty")

// Option is a functional option for configuring an Auditor.
type Option func(*Auditor)

// WithBrandChecker enables the phonetic brand cross-check over the
// transcript. Pass nil to disable.
func WithBrandChecker(bc *BrandChecker) Option {
	return func(a *Auditor) {
		a.brand = bc
	}
}

// Auditor runs rubric evaluations against an LLM oracle.
type Auditor struct {
	oracle llm.Provider
	policy scoring.FatalPolicy
	brand  *BrandChecker
}

// New creates an Auditor. oracle must be non-nil; wrap it in a
// resilience.LLMFallback for failover.
func New(oracle llm.Provider, policy scoring.FatalPolicy, opts ...Option) (*Auditor, error) {
	if oracle == nil {
		return nil, errors.New("audit: oracle must not be nil")
	}
	a := &Auditor{
		oracle: oracle,
		policy: policy,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Score evaluates the transcript against the rubric and returns the compiled
// report. The rubric's shape selects the evaluation mode: granular rubrics
// are scored 0..max with an NA sentinel, discrete rubrics with yes/no/na
// answers.
//
// An empty transcript and an unparsable oracle payload are hard failures;
// no partial report is produced. Individual malformed judgment entries
// degrade to zero-score defaults inside the decoder instead.
func (a *Auditor) Score(ctx context.Context, r *rubric.Rubric, transcript string, segments []segment.Segment, in PromptInputs) (*scoring.Report, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	in.Transcript = transcript
	if in.SegmentsText == "" {
		in.SegmentsText = segment.FormatForPrompt(segments)
	}

	mode := r.Mode()
	var systemPrompt, userPrompt string
	switch mode {
	case rubric.ModeGranular:
		systemPrompt = granularSystemPrompt
		userPrompt = buildGranularPrompt(r, a.policy, in)
	case rubric.ModeDiscrete:
		systemPrompt = discreteSystemPrompt
		userPrompt = buildDiscretePrompt(r, in)
	default:
		return nil, fmt.Errorf("audit: unsupported rubric mode %q", mode)
	}

	slog.Info("requesting oracle evaluation",
		"provider", a.oracle.Name(),
		"mode", string(mode),
		"prompt_chars", len(userPrompt))

	resp, err := a.oracle.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Prompt:       userPrompt,
		Temperature:  oracleTemperature,
		JSONResponse: true,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: oracle completion: %w", err)
	}

	slog.Info("oracle evaluation received",
		"provider", a.oracle.Name(),
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	var judgments scoring.Judgments
	if mode == rubric.ModeGranular {
		judgments, err = scoring.DecodeGranularPayload([]byte(resp.Content))
	} else {
		judgments, err = scoring.DecodeDiscretePayload([]byte(resp.Content))
	}
	if err != nil {
		return nil, fmt.Errorf("audit: decode oracle payload: %w", err)
	}

	report := scoring.Compile(r, judgments, a.policy)

	if a.brand != nil {
		a.crossCheckBrand(report, transcript)
	}
	return report, nil
}

// crossCheckBrand compares brand-related judgments against a phonetic scan
// of the transcript. Disagreements are logged and annotated on the entry;
// the resolved scores are never altered, the oracle's judgment stands.
func (a *Auditor) crossCheckBrand(rep *scoring.Report, transcript string) {
	mentions := a.brand.Check(transcript)

	for i := range rep.CriteriaScores {
		entry := &rep.CriteriaScores[i]
		if !strings.Contains(entry.ID, "brand") || entry.IsNA {
			continue
		}
		switch {
		case entry.Score > 0 && len(mentions) == 0:
			slog.Warn("brand credited without phonetic support",
				"criterion", entry.ID, "score", entry.Score)
			note := "Phonetic cross-check found no brand mention in the transcript text."
			if entry.ValidationNotes == "" {
				entry.ValidationNotes = note
			} else {
				entry.ValidationNotes += " " + note
			}
		case entry.Score == 0 && len(mentions) > 0:
			var spans []string
			for _, m := range mentions {
				spans = append(spans, fmt.Sprintf("%q (%.2f)", m.Text, m.Score))
			}
			slog.Info("possible brand mention despite zero score",
				"criterion", entry.ID, "spans", strings.Join(spans, ", "))
		}
	}
}
