package resilience

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/callscope/callaudit/internal/observe"
	"github.com/callscope/callaudit/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with automatic failover across multiple
// LLM backends. Each backend has its own circuit breaker; when the primary fails
// or its breaker is open, the next healthy fallback is tried.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional LLM provider as a fallback.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Name returns the primary provider's name. The name identifies the preferred
// backend; it does not change when a fallback serves a request.
func (f *LLMFallback) Name() string {
	if len(f.group.backends) > 0 {
		return f.group.backends[0].value.Name()
	}
	return "llm-fallback"
}

// Complete sends the request to the first healthy provider and returns its
// response. If the primary fails, subsequent fallbacks are tried. Every
// attempt is recorded per backend, including the ones that fell through.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m := observe.DefaultMetrics()
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		start := time.Now()
		resp, err := p.Complete(ctx, req)
		m.LLMDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(observe.Attr("provider", p.Name())))
		if err != nil {
			m.RecordProviderRequest(ctx, p.Name(), "llm", "error")
			m.RecordProviderError(ctx, p.Name(), "llm")
			return nil, err
		}
		m.RecordProviderRequest(ctx, p.Name(), "llm", "ok")
		if resp != nil {
			m.RecordTokens(ctx, int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))
		}
		return resp, nil
	})
}
