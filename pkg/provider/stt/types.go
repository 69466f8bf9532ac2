package stt

// JobConfig describes a single batch transcription job. Zero values are
// acceptable everywhere; providers substitute their own defaults.
type JobConfig struct {
	// FileName is the original name of the uploaded recording. Providers that
	// support it pass this through as a client reference so remote jobs can be
	// correlated with local runs.
	FileName string

	// LanguageHints lists BCP-47 language tags expected in the audio (e.g.,
	// "en", "ta"). Providers that support language identification use these
	// to steer recognition in code-switched conversations.
	LanguageHints []string

	// Diarize requests speaker diarization. When false, all tokens carry an
	// empty speaker label.
	Diarize bool

	// Context supplies free-form domain hints to the recognizer, if the
	// provider supports prompt-style context.
	Context *JobContext
}

// JobContext carries recognition hints for providers with prompt-style
// context support (Soniox "context" blocks).
type JobContext struct {
	// General is a list of key/value hints, e.g. {"domain", "Real estate"}.
	General []ContextHint

	// Text is a longer free-form description of the conversation.
	Text string
}

// ContextHint is a single key/value recognition hint.
type ContextHint struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Token is a single timed token from the provider's transcript. Timing may be
// reported in seconds (StartTime/EndTime) or milliseconds (StartMS/EndMS)
// depending on the backend; nil means the field was absent from the payload.
type Token struct {
	Text    string `json:"text"`
	Speaker string `json:"speaker"`

	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
	StartMS   *float64 `json:"start_ms,omitempty"`
	EndMS     *float64 `json:"end_ms,omitempty"`

	// Confidence is the provider's per-token confidence (0.0-1.0), zero when
	// not reported.
	Confidence float64 `json:"confidence,omitempty"`

	// Language is the per-token detected language tag, empty when the
	// provider does not do language identification.
	Language string `json:"language,omitempty"`
}

// Result is the completed output of a transcription job.
type Result struct {
	// Text is the provider-assembled full transcript. May be empty; callers
	// fall back to concatenating token text.
	Text string

	// Tokens is the raw timed token stream in transcript order.
	Tokens []Token

	// JobID is the remote job identifier, useful for support and audit logs.
	JobID string
}
