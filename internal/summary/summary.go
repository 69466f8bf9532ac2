// Package summary generates the narrative call report: a second LLM pass
// that condenses the transcript and the compiled score into dashboard-ready
// summaries of the call, the agent's performance, and the client's stance.
//
// Unlike the scoring oracle, the summary call fails soft: when the LLM is
// unavailable or returns garbage, a placeholder report is returned so the
// surrounding run still completes.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/callscope/callaudit/internal/scoring"
	"github.com/callscope/callaudit/internal/segment"
	"github.com/callscope/callaudit/pkg/provider/llm"
)

// summaryTemperature allows slightly more variation than scoring; the
// output is prose, not arithmetic.
const summaryTemperature = 0.2

// segmentCap bounds the segment block to keep the prompt small.
const segmentCap = 200

const systemPrompt = "You are an expert QA coach generating concise, structured summaries " +
	"for a call review dashboard. Respond ONLY with a single JSON object " +
	"matching the specified schema."

// ErrEmptyTranscript is returned when there is no transcript to summarize.
var ErrEmptyTranscript = errors.New("summary: transcript is empty")

// AgentSummary holds the coaching bullets for the agent.
type AgentSummary struct {
	WellPerformed      []string `json:"well_performed"`
	AreasOfImprovement []string `json:"areas_of_improvement"`
}

// Report is the narrative output shown alongside the score.
type Report struct {
	OverallSummary string       `json:"overall_summary"`
	AgentSummary   AgentSummary `json:"agent_summary"`
	ClientSummary  string       `json:"client_summary"`

	// Degraded is set when the LLM call failed and the placeholder report
	// was substituted. Error carries the cause for display.
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Generator produces narrative reports through an LLM provider.
type Generator struct {
	provider llm.Provider
}

// New creates a Generator. provider must be non-nil.
func New(provider llm.Provider) (*Generator, error) {
	if provider == nil {
		return nil, errors.New("summary: provider must not be nil")
	}
	return &Generator{provider: provider}, nil
}

// Generate builds the narrative report for a scored call. An empty
// transcript or a nil score is a hard error; LLM failures degrade to a
// placeholder report with Degraded set.
func (g *Generator) Generate(ctx context.Context, transcript *segment.Result, score *scoring.Report) (*Report, error) {
	if transcript == nil || strings.TrimSpace(transcript.Transcription) == "" {
		return nil, ErrEmptyTranscript
	}
	if score == nil {
		return nil, errors.New("summary: score data is required")
	}

	prompt := buildPrompt(transcript, score)

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Prompt:       prompt,
		Temperature:  summaryTemperature,
		JSONResponse: true,
	})
	if err != nil {
		slog.Error("narrative report generation failed", "provider", g.provider.Name(), "error", err)
		return degradedReport(err), nil
	}
	if resp == nil {
		err := errors.New("empty completion response")
		slog.Error("narrative report generation failed", "provider", g.provider.Name(), "error", err)
		return degradedReport(err), nil
	}

	var rep Report
	if err := json.Unmarshal([]byte(resp.Content), &rep); err != nil {
		slog.Error("narrative report unparsable", "provider", g.provider.Name(), "error", err)
		return degradedReport(err), nil
	}
	if rep.AgentSummary.WellPerformed == nil {
		rep.AgentSummary.WellPerformed = []string{}
	}
	if rep.AgentSummary.AreasOfImprovement == nil {
		rep.AgentSummary.AreasOfImprovement = []string{}
	}
	return &rep, nil
}

// degradedReport is the placeholder returned when generation fails.
func degradedReport(cause error) *Report {
	return &Report{
		OverallSummary: "Report generation failed.",
		AgentSummary: AgentSummary{
			WellPerformed:      []string{},
			AreasOfImprovement: []string{},
		},
		ClientSummary: "Could not generate client summary due to an internal error.",
		Degraded:      true,
		Error:         cause.Error(),
	}
}

// buildPrompt renders the summary prompt: compact score lines, capped
// speaker segments, then the full transcript.
func buildPrompt(transcript *segment.Result, score *scoring.Report) string {
	var scores strings.Builder
	for _, c := range score.CriteriaScores {
		resp := c.Response
		if resp == "" {
			resp = fmt.Sprintf("%d", c.Score)
		}
		fmt.Fprintf(&scores, "- %s (ID: %s): Response=%s, Points=%d/%d\n",
			c.Name, c.ID, resp, c.Score, c.MaxPoints)
	}

	var segs strings.Builder
	segments := transcript.SpeakerSegments
	if len(segments) > segmentCap {
		segments = segments[:segmentCap]
	}
	for _, s := range segments {
		fmt.Fprintf(&segs, "- %s [%.1fs - %.1fs]: %s\n", s.Speaker, s.StartTime, s.EndTime, s.Text)
	}
	segText := segs.String()
	if segText == "" {
		segText = "Not available"
	}

	var sb strings.Builder
	sb.WriteString("You are an expert QA coach for pre-sales real estate calls.\n")
	sb.WriteString("You will receive the full call transcript, optional speaker segments, and a structured scoring output.\n\n")
	sb.WriteString("Based on this, generate THREE concise but information-rich summaries:\n")
	sb.WriteString("1) overall_summary: overall narrative of the call, including call purpose, flow, and outcome.\n")
	sb.WriteString("2) agent_summary:\n")
	sb.WriteString("   - well_performed: 3-6 short bullet points describing what the AGENT did well, grounded in the scores and transcript.\n")
	sb.WriteString("   - areas_of_improvement: 3-6 short bullet points describing what the AGENT should improve.\n")
	sb.WriteString("3) client_summary: short summary (2-5 sentences) about the CLIENT's behaviour, interest level, objections and final stance.\n\n")
	sb.WriteString("GUIDELINES:\n")
	sb.WriteString("- Use simple, direct language that can be shown as-is in a UI.\n")
	sb.WriteString("- Refer to the agent as \"agent\" or \"associate\" and to the other party as \"customer\" or \"client\".\n")
	sb.WriteString("- Use the scoring to guide emphasis (high-scoring areas are strengths, low-scoring areas are improvements) but ground every statement in transcript behaviour.\n")
	sb.WriteString("- Do NOT quote excessively; paraphrase where possible.\n")
	sb.WriteString("- Keep each bullet point or sentence focused on a single clear idea.\n")
	sb.WriteString("- You may bold only the MOST IMPORTANT words or short phrases with Markdown markers; do not overuse bold.\n\n")
	sb.WriteString("RETURN FORMAT (STRICT):\n")
	sb.WriteString("Return ONLY a single JSON object with this exact shape:\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"overall_summary\": \"string\",\n")
	sb.WriteString("  \"agent_summary\": {\n")
	sb.WriteString("    \"well_performed\": [\"string\", \"...\"],\n")
	sb.WriteString("    \"areas_of_improvement\": [\"string\", \"...\"]\n")
	sb.WriteString("  },\n")
	sb.WriteString("  \"client_summary\": \"string\"\n")
	sb.WriteString("}\n\n")
	fmt.Fprintf(&sb, "=== SCORING DATA (for context) ===\nTotal Score: %d/%d (%.2f%%)\nCriteria:\n%s\n",
		score.TotalScore, score.TotalPoints, score.Percentage, scores.String())
	fmt.Fprintf(&sb, "=== SPEAKER SEGMENTS (optional) ===\n%s\n", segText)
	fmt.Fprintf(&sb, "=== FULL TRANSCRIPT ===\n%s\n", transcript.Transcription)
	return sb.String()
}
