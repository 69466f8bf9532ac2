// Package transcribe runs the transcription pipeline: it submits a
// recording to the configured STT provider, converts the provider token
// stream into the internal token shape, and aggregates it into speaker
// segments.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/callscope/callaudit/internal/segment"
	"github.com/callscope/callaudit/pkg/provider/stt"
)

// Config controls the per-run transcription behaviour. The zero value
// requests diarized recognition with the default segment aggregation.
type Config struct {
	// LanguageHints lists BCP-47 tags expected in the audio.
	LanguageHints []string

	// DisableDiarization turns speaker diarization off. Diarization is on
	// by default because the scoring prompts depend on speaker turns.
	DisableDiarization bool

	// MergeThreshold overrides the same-speaker gap (seconds) below which
	// consecutive segments are merged. Zero keeps the engine default.
	MergeThreshold float64

	// RawSpeakerLabels keeps the provider's speaker ids instead of
	// renumbering them by first appearance.
	RawSpeakerLabels bool

	// ContextHints are key/value recognition hints passed to providers
	// with prompt-style context support.
	ContextHints map[string]string

	// ContextText is a free-form description of the expected conversation.
	ContextText string
}

// Transcription is the pipeline output: the aggregated transcript plus
// provenance for the remote job.
type Transcription struct {
	segment.Result

	// JobID is the provider's job identifier, empty for providers that do
	// not expose one.
	JobID string `json:"job_id,omitempty"`

	// Provider names the STT backend that produced the transcript.
	Provider string `json:"provider"`
}

// Service drives one STT provider through the aggregation pipeline.
type Service struct {
	provider stt.Provider
	cfg      Config
}

// New creates a Service. provider must be non-nil.
func New(provider stt.Provider, cfg Config) (*Service, error) {
	if provider == nil {
		return nil, errors.New("transcribe: provider must not be nil")
	}
	return &Service{provider: provider, cfg: cfg}, nil
}

// Transcribe submits audio to the provider and aggregates the result.
// fileName is passed through as the provider's client reference.
func (s *Service) Transcribe(ctx context.Context, audio io.Reader, fileName string) (*Transcription, error) {
	job := stt.JobConfig{
		FileName:      fileName,
		LanguageHints: s.cfg.LanguageHints,
		Diarize:       !s.cfg.DisableDiarization,
		Context:       s.jobContext(),
	}

	start := time.Now()
	slog.Info("submitting transcription job",
		"provider", s.provider.Name(),
		"file", fileName,
		"language_hints", strings.Join(s.cfg.LanguageHints, ","),
		"diarize", job.Diarize,
	)

	res, err := s.provider.Transcribe(ctx, audio, job)
	if err != nil {
		return nil, fmt.Errorf("transcribe %q: %w", fileName, err)
	}
	if res == nil {
		return nil, fmt.Errorf("transcribe %q: provider %s returned no result", fileName, s.provider.Name())
	}

	result, err := segment.Build(res.Text, convertTokens(res.Tokens), s.segmentOptions()...)
	if err != nil {
		return nil, fmt.Errorf("aggregate %q: %w", fileName, err)
	}

	slog.Info("transcription complete",
		"provider", s.provider.Name(),
		"file", fileName,
		"job_id", res.JobID,
		"segments", len(result.SpeakerSegments),
		"speakers", result.SpeakerCount,
		"audio_duration_s", result.Duration,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return &Transcription{
		Result:   *result,
		JobID:    res.JobID,
		Provider: s.provider.Name(),
	}, nil
}

func (s *Service) jobContext() *stt.JobContext {
	if len(s.cfg.ContextHints) == 0 && s.cfg.ContextText == "" {
		return nil
	}
	jc := &stt.JobContext{Text: s.cfg.ContextText}
	for _, key := range sortedKeys(s.cfg.ContextHints) {
		jc.General = append(jc.General, stt.ContextHint{Key: key, Value: s.cfg.ContextHints[key]})
	}
	return jc
}

func (s *Service) segmentOptions() []segment.Option {
	var opts []segment.Option
	if s.cfg.MergeThreshold > 0 {
		opts = append(opts, segment.WithMergeThreshold(s.cfg.MergeThreshold))
	}
	if s.cfg.RawSpeakerLabels {
		opts = append(opts, segment.WithRawSpeakerLabels())
	}
	return opts
}

// convertTokens maps provider tokens onto the aggregation engine's token
// shape, carrying timing fields through untouched.
func convertTokens(tokens []stt.Token) []segment.Token {
	out := make([]segment.Token, len(tokens))
	for i, t := range tokens {
		out[i] = segment.Token{
			Text:      t.Text,
			Speaker:   t.Speaker,
			StartTime: t.StartTime,
			EndTime:   t.EndTime,
			StartMS:   t.StartMS,
			EndMS:     t.EndMS,
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
