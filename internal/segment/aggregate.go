package segment

import (
	"errors"
	"log/slog"
	"math"
	"strings"
)

// DefaultMergeThreshold is the maximum gap in seconds between a token and the
// open segment's end before a new segment is started for the same speaker.
const DefaultMergeThreshold = 0.5

// unknownSpeaker is assigned to tokens whose speaker field is absent.
const unknownSpeaker = "UNKNOWN"

// ErrNoTokens is returned by [Build] when the token stream contains no token
// with non-empty sanitized text.
var ErrNoTokens = errors.New("segment: token stream contains no usable tokens")

// Option configures [Aggregate] and [Build].
type Option func(*options)

type options struct {
	mergeThreshold    float64
	normalizeSpeakers bool
}

// WithMergeThreshold overrides [DefaultMergeThreshold].
func WithMergeThreshold(seconds float64) Option {
	return func(o *options) {
		o.mergeThreshold = seconds
	}
}

// WithRawSpeakerLabels keeps the provider's raw speaker identifiers in the
// result instead of renaming them to "Speaker 1", "Speaker 2", ….
func WithRawSpeakerLabels() Option {
	return func(o *options) {
		o.normalizeSpeakers = false
	}
}

func applyOptions(opts []Option) options {
	o := options{
		mergeThreshold:    DefaultMergeThreshold,
		normalizeSpeakers: true,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// rawSegment is an open segment under construction. Times are seconds after
// unit correction but before rounding.
type rawSegment struct {
	speaker string
	start   float64
	end     float64
	text    strings.Builder
}

// Aggregate groups tokens into finalized speaker segments. Provider order is
// time order; tokens are never re-sorted. A new segment starts when no
// segment is open, the speaker changes, or the gap to the open segment's end
// exceeds the merge threshold. Token text is appended without a separator —
// the tokens' own encoded spacing supplies word boundaries. Tokens whose
// sanitized text is empty are skipped entirely and neither break nor extend
// a segment.
func Aggregate(tokens []Token, opts ...Option) []Segment {
	o := applyOptions(opts)

	var raw []*rawSegment
	var cur *rawSegment

	for _, tok := range tokens {
		text := SanitizeToken(tok.Text)
		if text == "" {
			continue
		}

		speaker := tok.Speaker
		if speaker == "" {
			speaker = unknownSpeaker
		}

		start := tok.start()
		end := tok.end(start)

		if cur == nil || cur.speaker != speaker || start-cur.end > o.mergeThreshold {
			if cur != nil {
				raw = append(raw, cur)
			}
			cur = &rawSegment{
				speaker: speaker,
				start:   correctUnits(start),
				end:     correctUnits(end),
			}
			cur.text.WriteString(text)
		} else {
			cur.end = correctUnits(end)
			cur.text.WriteString(text)
		}
	}
	if cur != nil {
		raw = append(raw, cur)
	}

	return finalize(raw)
}

// correctUnits re-divides by 1000 any value that looks like a millisecond
// reading that slipped past the seconds/milliseconds field resolution. The
// heuristic misfires on calls legitimately longer than 1000 seconds; the
// provider does not tag units, so this mirrors its observed behaviour.
func correctUnits(v float64) float64 {
	if v > 1000 {
		return v / 1000.0
	}
	return v
}

// finalize converts open segments into the wire shape: trim-sanitized text,
// repaired timing, two-decimal rounding, derived duration. Segments whose
// text sanitizes to empty are dropped.
func finalize(raw []*rawSegment) []Segment {
	segs := make([]Segment, 0, len(raw))
	for i, rs := range raw {
		text := Sanitize(rs.text.String())
		if text == "" {
			continue
		}

		start, end := rs.start, rs.end
		if end < start {
			slog.Warn("segment has end before start, repairing",
				"index", i, "start", start, "end", end)
			end = start + 1.0
		}

		segs = append(segs, Segment{
			Speaker:   rs.speaker,
			StartTime: round2(start),
			EndTime:   round2(end),
			Duration:  round2(end - start),
			Text:      text,
		})
	}
	return segs
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
