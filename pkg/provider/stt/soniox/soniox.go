// Package soniox provides a Soniox-backed STT provider using the Soniox async
// REST API. It implements the stt.Provider interface.
//
// A transcription runs in four steps: upload the audio file, create a
// transcription job referencing the uploaded file, poll the job status until
// it completes, then fetch the final token transcript.
package soniox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/callscope/callaudit/pkg/provider/stt"
)

const (
	defaultBaseURL      = "https://api.soniox.com"
	defaultModel        = "stt-async-preview"
	defaultPollInterval = 2 * time.Second
	defaultMaxPollTries = 300
)

// ErrPollBudgetExceeded is returned when a job does not reach a terminal
// status within the configured number of poll attempts.
var ErrPollBudgetExceeded = errors.New("soniox: transcription did not complete within poll budget")

// Option is a functional option for configuring the Soniox Provider.
type Option func(*Provider)

// WithBaseURL overrides the API base URL. Useful for proxies and tests.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithModel sets the Soniox model to use (e.g., "stt-async-preview").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithHTTPClient sets a custom HTTP client, e.g. with tuned timeouts.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.client = client
	}
}

// WithPollInterval sets the delay between job status polls.
func WithPollInterval(d time.Duration) Option {
	return func(p *Provider) {
		p.pollInterval = d
	}
}

// WithMaxPollAttempts sets how many status polls are made before giving up
// with ErrPollBudgetExceeded.
func WithMaxPollAttempts(n int) Option {
	return func(p *Provider) {
		p.maxPollTries = n
	}
}

// Provider implements stt.Provider backed by the Soniox async API.
type Provider struct {
	apiKey       string
	baseURL      string
	model        string
	client       *http.Client
	pollInterval time.Duration
	maxPollTries int
}

// New creates a new Soniox Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("soniox: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		model:        defaultModel,
		client:       &http.Client{Timeout: 10 * time.Minute},
		pollInterval: defaultPollInterval,
		maxPollTries: defaultMaxPollTries,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name returns "soniox".
func (p *Provider) Name() string {
	return "soniox"
}

// Transcribe runs the full async flow: upload, create job, poll, fetch.
func (p *Provider) Transcribe(ctx context.Context, r io.Reader, cfg stt.JobConfig) (*stt.Result, error) {
	fileID, err := p.uploadFile(ctx, r, cfg.FileName)
	if err != nil {
		return nil, fmt.Errorf("soniox: upload: %w", err)
	}
	slog.Debug("uploaded audio file", "provider", "soniox", "file_id", fileID)

	jobID, err := p.createTranscription(ctx, fileID, cfg)
	if err != nil {
		return nil, fmt.Errorf("soniox: create transcription: %w", err)
	}
	slog.Debug("created transcription job", "provider", "soniox", "job_id", jobID)

	if err := p.awaitCompletion(ctx, jobID); err != nil {
		return nil, err
	}

	text, tokens, err := p.fetchTranscript(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("soniox: fetch transcript: %w", err)
	}
	return &stt.Result{Text: text, Tokens: tokens, JobID: jobID}, nil
}

// uploadFile sends the audio as a multipart upload and returns the file id.
func (p *Provider) uploadFile(ctx context.Context, r io.Reader, fileName string) (string, error) {
	if fileName == "" {
		fileName = "audio"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		ID string `json:"id"`
	}
	if err := p.do(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("upload response did not contain a file id")
	}
	return out.ID, nil
}

// createTranscription submits a transcription job for an uploaded file and
// returns the job id.
func (p *Provider) createTranscription(ctx context.Context, fileID string, cfg stt.JobConfig) (string, error) {
	payload := map[string]any{
		"model":                      p.model,
		"file_id":                    fileID,
		"enable_speaker_diarization": cfg.Diarize,
	}
	if len(cfg.LanguageHints) > 0 {
		payload["language_hints"] = cfg.LanguageHints
		payload["enable_language_identification"] = true
	}
	if cfg.FileName != "" {
		payload["client_reference_id"] = cfg.FileName
	}
	if cfg.Context != nil {
		ctxBlock := map[string]any{}
		if len(cfg.Context.General) > 0 {
			ctxBlock["general"] = cfg.Context.General
		}
		if cfg.Context.Text != "" {
			ctxBlock["text"] = cfg.Context.Text
		}
		if len(ctxBlock) > 0 {
			payload["context"] = ctxBlock
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/transcriptions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		ID string `json:"id"`
	}
	if err := p.do(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("create response did not contain a job id")
	}
	return out.ID, nil
}

// awaitCompletion polls the job status until it reaches a terminal state,
// ctx is done, or the poll budget runs out.
func (p *Provider) awaitCompletion(ctx context.Context, jobID string) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < p.maxPollTries; attempt++ {
		status, errMsg, err := p.jobStatus(ctx, jobID)
		if err != nil {
			return fmt.Errorf("soniox: poll status: %w", err)
		}
		switch status {
		case "completed":
			return nil
		case "error":
			if errMsg == "" {
				errMsg = "unknown error"
			}
			return fmt.Errorf("soniox: transcription failed: %s", errMsg)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return ErrPollBudgetExceeded
}

// jobStatus fetches the current status of a transcription job.
func (p *Provider) jobStatus(ctx context.Context, jobID string) (status, errMsg string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/transcriptions/"+jobID, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	var out struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	if err := p.do(req, &out); err != nil {
		return "", "", err
	}
	return out.Status, out.ErrorMessage, nil
}

// fetchTranscript retrieves the final token transcript for a completed job.
func (p *Provider) fetchTranscript(ctx context.Context, jobID string) (string, []stt.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/transcriptions/"+jobID+"/transcript", nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	var out struct {
		Text   string      `json:"text"`
		Tokens []stt.Token `json:"tokens"`
	}
	if err := p.do(req, &out); err != nil {
		return "", nil, err
	}
	if len(out.Tokens) == 0 {
		return "", nil, errors.New("transcript response did not contain any tokens")
	}
	return out.Text, out.Tokens, nil
}

// do executes the request and decodes a JSON response into out. Non-2xx
// responses are turned into errors carrying the API's message when one can
// be extracted from the body.
func (p *Provider) do(req *http.Request, out any) error {
	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return apiError(res.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError extracts the API's error message from a failure body, falling
// back to a truncated raw body.
func apiError(status int, body []byte) error {
	var detail struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Message != "" {
		return fmt.Errorf("api error (status %d): %s", status, detail.Message)
	}
	raw := string(body)
	if len(raw) > 500 {
		raw = raw[:500]
	}
	return fmt.Errorf("api error (status %d): %s", status, raw)
}

var _ stt.Provider = (*Provider)(nil)
