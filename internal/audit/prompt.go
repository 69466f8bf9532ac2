package audit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/callscope/callaudit/internal/rubric"
	"github.com/callscope/callaudit/internal/scoring"
)

// granularSystemPrompt is the system message for granular (v2) evaluations.
// The oracle must answer with one JSON object keyed by criterion id.
const granularSystemPrompt = `You are an expert call quality auditor specializing in real estate pre-sales calls. ` +
	`You evaluate transcripts with GRANULAR SCORING (0 to max points per parameter, or -1 for NA). ` +
	`CRITICAL REQUIREMENTS: ` +
	`1. TIMESTAMPS ARE ABSOLUTELY MANDATORY - every piece of evidence MUST have exact timestamps [MM:SS - MM:SS]. ` +
	`2. Write comprehensive rationales (5-8+ sentences minimum per parameter). ` +
	`3. Include ALL relevant evidence pieces with exact timestamps, not just 1-2 examples. ` +
	`4. Quote VERBATIM from the transcript - use actual words spoken, not summaries. ` +
	`5. Analyze the ENTIRE transcript for context before scoring each parameter. ` +
	`6. Strictly validate project knowledge against the provided Ready Reckoner data with exact values and timestamps. ` +
	`7. NEVER assume or hallucinate - every score is backed by explicit transcript evidence with verifiable timestamps. ` +
	`8. NA SCORING: use score=-1 EXTREMELY SPARINGLY when a parameter is genuinely not applicable; NA awards full points automatically. ` +
	`You respond ONLY with a single valid JSON object, no other text.`

// discreteSystemPrompt is the system message for discrete (v1) evaluations.
const discreteSystemPrompt = `You are an expert call quality auditor. You evaluate pre-sales call transcripts ` +
	`against a rubric where each criterion is answered "yes", "no", or "na". ` +
	`Base every answer on explicit transcript evidence with exact timestamps [MM:SS - MM:SS]. ` +
	`You respond ONLY with a single valid JSON object, no other text.`

// PromptInputs carries the knowledge context assembled for one evaluation.
type PromptInputs struct {
	// Transcript is the full sanitized call transcript.
	Transcript string
	// SegmentsText is the rendered speaker-segment block with timestamps and
	// silence markers.
	SegmentsText string
	// FactSheet is the rendered ready-reckoner knowledge block.
	FactSheet string
	// FAQSheet is the rendered FAQ knowledge block.
	FAQSheet string
	// Script is the ideal-call script reference.
	Script string
}

// buildGranularPrompt assembles the user prompt for a granular evaluation.
func buildGranularPrompt(r *rubric.Rubric, policy scoring.FatalPolicy, in PromptInputs) string {
	var sb strings.Builder

	sb.WriteString("You are an expert call quality auditor for real estate pre-sales calls. ")
	sb.WriteString("Your task is to evaluate a call transcript against a detailed quality rubric with GRANULAR SCORING.\n\n")

	sb.WriteString("# IMPORTANT: GRANULAR SCORING SYSTEM\n\n")
	sb.WriteString("Each parameter can receive any score from 0 to its maximum points.\n")
	sb.WriteString("- Scores reflect the QUALITY and COMPLETENESS of execution; award partial credit for partial execution\n")
	sb.WriteString("- Use the scoring guides provided for each parameter\n")
	sb.WriteString("- **NA (Not Applicable) = -1**: when a parameter is genuinely not applicable, set score to -1, which automatically awards FULL maximum points\n")
	sb.WriteString("- Use NA EXTREMELY SPARINGLY and explain in the rationale why the parameter does not apply\n\n")

	sb.WriteString(fatalSection(r, policy))

	sb.WriteString("# CRITICAL EVALUATION PRINCIPLES\n\n")
	sb.WriteString("1. EVIDENCE-BASED SCORING: every score MUST be backed by explicit transcript evidence, ")
	sb.WriteString("and EVERY piece of evidence MUST carry an exact timestamp [MM:SS - MM:SS]. ")
	sb.WriteString("If you cannot find evidence with a verifiable timestamp, score lower or mark as not present.\n")
	sb.WriteString("2. WHOLE TRANSCRIPT ANALYSIS: analyze the entire conversation for each parameter, not isolated sections.\n")
	sb.WriteString("3. NO HALLUCINATION: only score what is explicitly present. Never invent evidence. ")
	sb.WriteString("Do NOT credit a brand mention unless the brand word itself appears in the transcript text with a timestamp; ")
	sb.WriteString("generic closings like \"Thank you, sir\" without the brand text are NOT brand mentions, ")
	sb.WriteString("even in Tamil or mixed Tamil-English lines.\n")
	sb.WriteString("4. PROJECT KNOWLEDGE VALIDATION: strictly validate ALL factual statements against BOTH the Ready Reckoner ")
	sb.WriteString("data AND the FAQ data below. Even ONE critical error (wrong project name, wrong pricing, wrong plot sizes, ")
	sb.WriteString("wrong approvals, major location errors) = 0 score for the factual-accuracy parameter.\n")
	sb.WriteString("5. CALLING SCRIPT ADHERENCE: the script shows the IDEAL flow, not mandatory wording; evaluate intent and structure, ")
	sb.WriteString("allowing natural variations, different ordering, and Tamil-English mixing.\n")
	sb.WriteString("6. LINGUISTIC CONTEXT: Tamil-English code-mixing is NORMAL and acceptable; never penalize language mixing unless ")
	sb.WriteString("it creates actual communication problems.\n")
	sb.WriteString("7. TONE: default to high scores unless clear negative behavior is present; score 0 for tone only when the agent is ")
	sb.WriteString("harsh, rude, abusive, aggressive, or disrespectful.\n")
	sb.WriteString("8. OBJECTION HANDLING: objections include ANY customer resistance, concern, unanswered question, redirection, ")
	sb.WriteString("frustration, skepticism, hesitation, or pushback. Mark NA only when the customer showed ZERO concerns of any kind ")
	sb.WriteString("throughout the entire call.\n\n")

	sb.WriteString(in.SegmentsText)
	sb.WriteString("\n\n# FULL TRANSCRIPT\n")
	sb.WriteString(in.Transcript)
	sb.WriteString("\n\n")
	sb.WriteString(in.FactSheet)
	sb.WriteString("\n\n")
	sb.WriteString(in.FAQSheet)
	sb.WriteString("\n\n# CALLING SCRIPT REFERENCE (IDEAL FLOW)\n")
	sb.WriteString(in.Script)
	sb.WriteString("\n\n# QUALITY RUBRIC FOR EVALUATION\n")
	sb.WriteString(granularRubricText(r))

	sb.WriteString("\n# YOUR TASK\n\n")
	sb.WriteString("Evaluate the transcript against EACH parameter in the rubric.\n\n")
	sb.WriteString("Respond with a single JSON object where each key is a parameter ID and each value is an object with:\n")
	sb.WriteString("- \"score\" (integer): points awarded, 0 to max_points, or -1 for NA\n")
	sb.WriteString("- \"rationale\" (string): comprehensive explanation with every referenced behavior timestamped, ")
	sb.WriteString("using **bold** for key strengths, weaknesses, and all timestamps\n")
	sb.WriteString("- \"evidence\" (array of strings): every relevant quote in the format \"[MM:SS - MM:SS] Speaker: verbatim quote\"; ")
	sb.WriteString("an empty array when no timestamped evidence exists\n")
	sb.WriteString("- \"validation_notes\" (string): for the factual-accuracy parameter only, every claim validated against the ")
	sb.WriteString("knowledge data with timestamps; empty string for other parameters\n\n")
	sb.WriteString("ONLY return the JSON object, no other text before or after.\n")

	return sb.String()
}

// fatalSection renders the fatal-parameter warning block from the configured
// policy, naming each fatal criterion found in the rubric.
func fatalSection(r *rubric.Rubric, policy scoring.FatalPolicy) string {
	ids := policy.IDs()
	if len(ids) == 0 {
		return ""
	}

	names := map[string]string{}
	for _, cat := range r.Categories {
		for _, p := range cat.SubParameters {
			names[p.ID] = p.Name
		}
	}
	for _, c := range r.Criteria {
		names[c.ID] = c.Name
	}

	var sb strings.Builder
	sb.WriteString("# FATAL PARAMETERS (CRITICAL GATING PARAMETERS)\n\n")
	sb.WriteString("The following parameters are FATAL - if ANY of them scores 0, the entire quality score will be set to 0:\n")
	n := 0
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = id
		}
		n++
		fmt.Fprintf(&sb, "%d. **%s** (%s)\n", n, name, id)
	}
	sb.WriteString("\nThese parameters are evaluated normally, but any zero among them zeroes the final total. ")
	sb.WriteString("Evaluate them strictly and accurately. An NA fatal parameter (score -1) is never treated as a zero.\n\n")
	return sb.String()
}

// granularRubricText renders categories and sub-parameters with their scoring
// guides, evidence requirements, and validation rules.
func granularRubricText(r *rubric.Rubric) string {
	var sb strings.Builder
	for _, cat := range r.Categories {
		fmt.Fprintf(&sb, "\n## %s (Total: %d points)\n", cat.Name, cat.MaxPoints)
		if cat.Description != "" {
			fmt.Fprintf(&sb, "   %s\n", cat.Description)
		}
		sb.WriteString("\n")

		for _, p := range cat.SubParameters {
			fmt.Fprintf(&sb, "   ### %s (ID: %s) - Max: %d points\n", p.Name, p.ID, p.MaxPoints)
			if p.Description != "" {
				fmt.Fprintf(&sb, "       %s\n", p.Description)
			}
			sb.WriteString("\n")

			if len(p.ScoringGuide) > 0 {
				sb.WriteString("       SCORING GUIDE:\n")
				for _, score := range guideKeysDescending(p.ScoringGuide) {
					fmt.Fprintf(&sb, "       [%s points]: %s\n", score, p.ScoringGuide[score])
				}
				sb.WriteString("\n")
			}
			if len(p.EvidenceRequired) > 0 {
				sb.WriteString("       EVIDENCE REQUIRED:\n")
				for _, ev := range p.EvidenceRequired {
					fmt.Fprintf(&sb, "       - %s\n", ev)
				}
				sb.WriteString("\n")
			}
			if len(p.ValidationRules) > 0 {
				sb.WriteString("       VALIDATION RULES:\n")
				for _, rule := range p.ValidationRules {
					fmt.Fprintf(&sb, "       - %s\n", rule)
				}
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

// guideKeysDescending sorts scoring-guide keys numerically descending; keys
// that are not numbers sort last.
func guideKeysDescending(guide map[string]string) []string {
	keys := make([]string, 0, len(guide))
	for k := range guide {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return errA == nil
		}
		return a > b
	})
	return keys
}

// buildDiscretePrompt assembles the user prompt for a discrete (yes/no/na)
// evaluation.
func buildDiscretePrompt(r *rubric.Rubric, in PromptInputs) string {
	var sb strings.Builder

	sb.WriteString("You are an expert call quality auditor evaluating a pre-sales real estate call transcript.\n\n")

	sb.WriteString("CALL FLOW & SCRIPT EXPECTATIONS (GUIDELINES, NOT EXACT WORDING):\n")
	sb.WriteString("- The calling script below describes an IDEAL flow; treat it as a reference for intent and structure, not exact phrases.\n")
	sb.WriteString("- The agent may use different wording, different ordering, and a mix of English/Tamil, as long as the meaning of each criterion is satisfied.\n")
	sb.WriteString("- Mark \"yes\" whenever the agent's behaviour meets the intent of the criterion; mark \"no\" only when the behaviour is missing, wrong, or below expectation.\n\n")

	sb.WriteString("PROJECT KNOWLEDGE VALIDATION (for the factual-accuracy criterion only): extract the exact values the agent mentioned ")
	sb.WriteString("and compare them against the project facts below; any deviation from the correct values is an automatic \"no\".\n\n")

	sb.WriteString("PROJECT FACTS FOR VALIDATION:\n")
	sb.WriteString(in.FactSheet)
	sb.WriteString("\n\nSPEAKER SEGMENTS WITH TIMING (USE EXACT TIMESTAMPS FROM HERE):\n")
	sb.WriteString(in.SegmentsText)
	sb.WriteString("\n\nTRANSCRIPT TO EVALUATE:\n")
	sb.WriteString(in.Transcript)
	sb.WriteString("\n\nCALLING SCRIPT REFERENCE (IDEAL FLOW):\n")
	sb.WriteString(in.Script)
	sb.WriteString("\n\nSCORING RUBRIC CRITERIA:\n")
	sb.WriteString(discreteRubricText(r))

	sb.WriteString("\nINSTRUCTIONS:\n")
	sb.WriteString("For each criterion, evaluate the transcript in the real call context and decide one of: \"yes\", \"no\", or \"na\".\n")
	sb.WriteString("- \"yes\": the criterion was met. Treat \"yes\" as requiring moderate to high confidence; with weak or ambiguous evidence prefer \"no\" or \"na\" and explain why.\n")
	sb.WriteString("- \"no\": the criterion was not met. Vague, weak, or incomplete execution of a required behaviour is \"no\", not \"na\".\n")
	sb.WriteString("- \"na\": the criterion genuinely did not apply to this call context.\n")
	sb.WriteString("Always analyze the ENTIRE transcript, cite exact timestamps [MM:SS - MM:SS] for every piece of evidence, ")
	sb.WriteString("and never assume behaviour that is not in the transcript text. Tamil-English code-mixing is normal and must not by itself cause a \"no\".\n\n")

	sb.WriteString("OUTPUT FORMAT (STRICT):\n")
	sb.WriteString("Respond with a single JSON object. Each key must be a criterion ID. Each value must be an object with:\n")
	sb.WriteString("- \"answer\": \"yes\" | \"no\" | \"na\"\n")
	sb.WriteString("- \"rationale\": comprehensive explanation referencing the transcript with exact timestamps, explaining how each cited evidence snippet supports the answer\n")
	sb.WriteString("- \"evidence_snippet\": all relevant quotes with timestamps, separated by semicolons, e.g. \"Quote 1 [0:02 - 0:06]; Quote 2 [1:12 - 1:24]\"\n\n")
	sb.WriteString("ONLY return the JSON object, no other text.\n")

	return sb.String()
}

// discreteRubricText renders the flat criteria list with levels.
func discreteRubricText(r *rubric.Rubric) string {
	var sb strings.Builder
	for i, c := range r.Criteria {
		fmt.Fprintf(&sb, "\n%d. %s (ID: %s)\n", i+1, c.Name, c.ID)
		if c.Description != "" {
			fmt.Fprintf(&sb, "   Description: %s\n", c.Description)
		}
		fmt.Fprintf(&sb, "   Max Points: %d\n", c.MaxPoints)
	}
	return sb.String()
}
