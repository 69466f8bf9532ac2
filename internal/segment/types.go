// Package segment implements the segment aggregation engine: it turns the
// flat stream of timed, speaker-tagged tokens returned by a transcription
// provider into merged, label-normalized speaker turns with sanitized text
// and second-based timing.
//
// The pipeline is Aggregate → MergeConsecutive → NormalizeSpeakers, wrapped
// by [Build] for callers that want the full transcript result in one step.
// All functions are pure; the package holds no state and is safe to use
// concurrently for independent calls.
package segment

// Token is a single timed token as delivered by the transcription provider.
// Timing may arrive in seconds (StartTime/EndTime) or in milliseconds
// (StartMS/EndMS); seconds take precedence when both are present. Nil means
// the field was absent from the provider payload.
type Token struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"`

	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
	StartMS   *float64 `json:"start_ms,omitempty"`
	EndMS     *float64 `json:"end_ms,omitempty"`
}

// start resolves the token's start in seconds: prefer the seconds field,
// fall back to milliseconds divided by 1000, default to 0.
func (t Token) start() float64 {
	if t.StartTime != nil {
		return *t.StartTime
	}
	if t.StartMS != nil {
		return *t.StartMS / 1000.0
	}
	return 0
}

// end resolves the token's end in seconds, defaulting to start when both
// timing fields are absent.
func (t Token) end(start float64) float64 {
	if t.EndTime != nil {
		return *t.EndTime
	}
	if t.EndMS != nil {
		return *t.EndMS / 1000.0
	}
	return start
}

// Segment is a contiguous span of speech attributed to one speaker. Times
// are seconds rounded to two decimals; Duration is EndTime − StartTime.
type Segment struct {
	Speaker   string  `json:"speaker"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
	Text      string  `json:"text"`
}

// Result is the full outcome of a transcription run: the whole-call text
// plus the finalized speaker segments and their aggregate statistics.
type Result struct {
	Transcription   string    `json:"transcription"`
	SpeakerSegments []Segment `json:"speaker_segments"`

	// Duration is the maximum segment end time in seconds.
	Duration float64 `json:"duration"`

	// SpeakerCount is the number of distinct speakers in SpeakerSegments.
	SpeakerCount int `json:"speaker_count"`
}
