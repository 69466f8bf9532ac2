// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider in unit tests to feed controlled transcripts into the
// transcription pipeline without a live STT backend. All fields are safe to
// set before calling any method; mutating them during a concurrent call is
// the caller's responsibility.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/callscope/callaudit/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Cfg is the JobConfig passed to Transcribe.
	Cfg stt.JobConfig
	// Audio is the full audio payload read from the reader.
	Audio []byte
}

// Provider is a mock implementation of stt.Provider.
// Zero values for response fields cause Transcribe to return nil, nil.
// Set TranscribeErr to inject errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// ProviderName is returned by Name. Defaults to "mock" when empty.
	ProviderName string

	// TranscribeResult is returned by Transcribe. May be nil (returns nil, nil).
	TranscribeResult *stt.Result

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// --- Call records (read after test) ---

	// TranscribeCalls records every invocation of Transcribe in order.
	TranscribeCalls []TranscribeCall
}

// Name returns ProviderName, or "mock" when unset.
func (p *Provider) Name() string {
	if p.ProviderName != "" {
		return p.ProviderName
	}
	return "mock"
}

// Transcribe drains r, records the call, and returns TranscribeResult,
// TranscribeErr.
func (p *Provider) Transcribe(ctx context.Context, r io.Reader, cfg stt.JobConfig) (*stt.Result, error) {
	audio, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Cfg: cfg, Audio: audio})
	return p.TranscribeResult, p.TranscribeErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
