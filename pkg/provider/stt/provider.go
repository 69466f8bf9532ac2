// Package stt defines the Provider interface for asynchronous Speech-to-Text
// backends.
//
// An STT provider wraps a batch transcription service (e.g., Soniox) and
// exposes a uniform blocking interface: Transcribe uploads a complete audio
// recording, waits for the remote job to finish, and returns the full token
// stream with speaker and timing detail. There is no streaming mode; call
// recordings are processed whole, after the fact.
//
// Implementations must be safe for concurrent use. Multiple transcriptions
// may be in flight simultaneously.
package stt

import (
	"context"
	"io"
)

// Provider is the abstraction over any async STT backend.
type Provider interface {
	// Name returns a short identifier for the backing service, used in logs
	// and stored run metadata.
	Name() string

	// Transcribe uploads the audio read from r, submits a transcription job,
	// and blocks until the job completes or ctx is cancelled. The returned
	// Result carries the provider's full-text transcript (when available) and
	// the raw timed tokens for segment aggregation.
	//
	// Transcribe returns an error if the upload fails, the remote job reports
	// an error status, polling exceeds the provider's attempt budget, or ctx
	// is done before the job finishes.
	Transcribe(ctx context.Context, r io.Reader, cfg JobConfig) (*Result, error)
}
