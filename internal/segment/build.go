package segment

import "strings"

// Build runs the full aggregation pipeline over a provider token stream and
// returns the transcript result.
//
// providerText is the provider's own whole-call text, preferred for the
// Transcription field because it is already properly spaced; when empty, the
// transcription falls back to the concatenation of sanitized token texts.
//
// Returns [ErrNoTokens] when no token survives sanitization — an empty call
// must surface as a hard failure, never as an empty report.
func Build(providerText string, tokens []Token, opts ...Option) (*Result, error) {
	o := applyOptions(opts)

	segs := Aggregate(tokens, opts...)
	if len(segs) == 0 {
		return nil, ErrNoTokens
	}

	var duration float64
	for _, s := range segs {
		if s.EndTime > duration {
			duration = s.EndTime
		}
	}

	segs = MergeConsecutive(segs)
	if o.normalizeSpeakers {
		segs = NormalizeSpeakers(segs)
	}

	speakers := make(map[string]struct{}, 2)
	for _, s := range segs {
		speakers[s.Speaker] = struct{}{}
	}

	transcription := Sanitize(providerText)
	if transcription == "" {
		var b strings.Builder
		for _, tok := range tokens {
			b.WriteString(SanitizeToken(tok.Text))
		}
		transcription = Sanitize(b.String())
	}

	return &Result{
		Transcription:   transcription,
		SpeakerSegments: segs,
		Duration:        round2(duration),
		SpeakerCount:    len(speakers),
	}, nil
}
