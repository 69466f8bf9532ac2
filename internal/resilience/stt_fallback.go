package resilience

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/callscope/callaudit/internal/observe"
	"github.com/callscope/callaudit/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// STT backends. Each backend has its own circuit breaker.
//
// The audio reader is buffered in memory once so that a fallback attempt can
// replay the same bytes after the primary has partially consumed the stream.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Name returns the primary provider's name.
func (f *STTFallback) Name() string {
	if len(f.group.backends) > 0 {
		return f.group.backends[0].value.Name()
	}
	return "stt-fallback"
}

// Transcribe runs the job against the first healthy provider. If the primary
// fails, subsequent fallbacks are tried with the same audio.
func (f *STTFallback) Transcribe(ctx context.Context, r io.Reader, cfg stt.JobConfig) (*stt.Result, error) {
	audio, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffer audio: %w", err)
	}
	m := observe.DefaultMetrics()
	return ExecuteWithResult(f.group, func(p stt.Provider) (*stt.Result, error) {
		start := time.Now()
		res, err := p.Transcribe(ctx, bytes.NewReader(audio), cfg)
		m.STTDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(observe.Attr("provider", p.Name())))
		if err != nil {
			m.RecordProviderRequest(ctx, p.Name(), "stt", "error")
			m.RecordProviderError(ctx, p.Name(), "stt")
			return nil, err
		}
		m.RecordProviderRequest(ctx, p.Name(), "stt", "ok")
		return res, nil
	})
}
