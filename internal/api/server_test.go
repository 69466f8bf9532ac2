package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/callscope/callaudit/internal/api"
	"github.com/callscope/callaudit/internal/audit"
	"github.com/callscope/callaudit/internal/rubric"
	"github.com/callscope/callaudit/internal/scoring"
	"github.com/callscope/callaudit/internal/segment"
	"github.com/callscope/callaudit/internal/store"
	"github.com/callscope/callaudit/internal/summary"
	"github.com/callscope/callaudit/internal/transcribe"
	"github.com/callscope/callaudit/pkg/provider/llm"
	llmmock "github.com/callscope/callaudit/pkg/provider/llm/mock"
	"github.com/callscope/callaudit/pkg/provider/stt"
	sttmock "github.com/callscope/callaudit/pkg/provider/stt/mock"
)

func f64(v float64) *float64 { return &v }

func testRubric() *rubric.Rubric {
	return &rubric.Rubric{
		Title:       "Pre-Sales Call Quality",
		Version:     "2.0",
		TotalPoints: 10,
		Categories: []rubric.Category{{
			ID:        "opening",
			Name:      "Call Opening",
			MaxPoints: 10,
			SubParameters: []rubric.Parameter{
				{ID: "greeting", Name: "Greeting", MaxPoints: 4},
				{ID: "brand_intro", Name: "Brand Introduction", MaxPoints: 6},
			},
		}},
	}
}

func sttResult() *stt.Result {
	return &stt.Result{
		Text:  "Hello there. Thanks for calling.",
		JobID: "job-7",
		Tokens: []stt.Token{
			{Text: "Hello", Speaker: "1", StartTime: f64(0), EndTime: f64(0.4)},
			{Text: " there.", Speaker: "1", StartTime: f64(0.4), EndTime: f64(0.9)},
			{Text: "Thanks", Speaker: "2", StartTime: f64(2.0), EndTime: f64(2.3)},
			{Text: " for calling.", Speaker: "2", StartTime: f64(2.3), EndTime: f64(3.1)},
		},
	}
}

const oraclePayload = `{
	"greeting":    {"score": 3, "rationale": "Warm greeting", "evidence": ["Hello there."]},
	"brand_intro": {"score": 6, "rationale": "Brand stated", "evidence": ["Thanks for calling."]}
}`

const summaryPayload = `{
	"overall_summary": "A short polite call.",
	"agent_summary": {"well_performed": ["Greeting"], "areas_of_improvement": []},
	"client_summary": "Client called to ask about pricing."
}`

// testDeps bundles the mocks behind a server so individual tests can tweak
// them before issuing requests.
type testDeps struct {
	handler  http.Handler
	store    *store.MemStore
	sttMock  *sttmock.Provider
	oracle   *llmmock.Provider
	narrator *llmmock.Provider
}

func newTestServer(t *testing.T, fatalIDs ...string) *testDeps {
	t.Helper()

	d := &testDeps{
		store:    store.NewMemStore(),
		sttMock:  &sttmock.Provider{TranscribeResult: sttResult()},
		oracle:   &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: oraclePayload}},
		narrator: &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: summaryPayload}},
	}

	transcriber, err := transcribe.New(d.sttMock, transcribe.Config{})
	if err != nil {
		t.Fatalf("transcribe.New: %v", err)
	}
	auditor, err := audit.New(d.oracle, scoring.NewFatalPolicy(fatalIDs...))
	if err != nil {
		t.Fatalf("audit.New: %v", err)
	}
	summarizer, err := summary.New(d.narrator)
	if err != nil {
		t.Fatalf("summary.New: %v", err)
	}

	srv, err := api.New(api.Config{
		Transcriber: transcriber,
		Auditor:     auditor,
		Summarizer:  summarizer,
		Store:       d.store,
		Rubric:      testRubric(),
	})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	d.handler = srv.Handler()
	return d
}

func (d *testDeps) do(t *testing.T, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	d.handler.ServeHTTP(rec, req)
	return rec
}

func (d *testDeps) postJSON(t *testing.T, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return d.do(t, http.MethodPost, target, bytes.NewBuffer(raw), "application/json")
}

func audioUpload(t *testing.T, fileName string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func seedRun(t *testing.T, s *store.MemStore, id string) *store.Run {
	t.Helper()
	run := &store.Run{
		ID:       id,
		FileName: "call.mp3",
		Provider: "mock",
		Transcript: &transcribe.Transcription{
			Result: segment.Result{
				Transcription: "Hello there. Thanks for calling.",
				SpeakerSegments: []segment.Segment{
					{Speaker: "Speaker 1", StartTime: 0, EndTime: 0.9, Duration: 0.9, Text: "Hello there."},
					{Speaker: "Speaker 2", StartTime: 2.0, EndTime: 3.1, Duration: 1.1, Text: "Thanks for calling."},
				},
				Duration:     3.1,
				SpeakerCount: 2,
			},
			Provider: "mock",
		},
	}
	if err := s.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	return run
}

func TestTranscribeEndpoint(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	body, ct := audioUpload(t, "call.mp3", []byte("fake-audio-bytes"))
	rec := d.do(t, http.MethodPost, "/v1/transcriptions", body, ct)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	run := decodeAs[store.Run](t, rec)
	if run.ID == "" {
		t.Error("run ID not assigned")
	}
	if run.FileName != "call.mp3" {
		t.Errorf("FileName = %q, want call.mp3", run.FileName)
	}
	if run.Transcript == nil || run.Transcript.Transcription != "Hello there. Thanks for calling." {
		t.Errorf("unexpected transcript: %+v", run.Transcript)
	}
	if got := len(run.Transcript.SpeakerSegments); got != 2 {
		t.Errorf("segments = %d, want 2", got)
	}

	// The run must be retrievable afterwards.
	rec = d.do(t, http.MethodGet, "/v1/runs/"+run.ID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET run status = %d", rec.Code)
	}
	fetched := decodeAs[store.Run](t, rec)
	if fetched.ID != run.ID {
		t.Errorf("fetched ID = %q, want %q", fetched.ID, run.ID)
	}
}

func TestTranscribeEndpointMissingFile(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()
	rec := d.do(t, http.MethodPost, "/v1/transcriptions", &buf, mw.FormDataContentType())

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestTranscribeEndpointEmptyFile(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	body, ct := audioUpload(t, "empty.mp3", nil)
	rec := d.do(t, http.MethodPost, "/v1/transcriptions", body, ct)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	envelope := decodeAs[map[string]string](t, rec)
	if !strings.Contains(envelope["error"], "empty") {
		t.Errorf("error = %q, want mention of empty upload", envelope["error"])
	}
}

func TestTranscribeEndpointProviderFailure(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)
	d.sttMock.TranscribeResult = nil
	d.sttMock.TranscribeErr = errors.New("upstream down")

	body, ct := audioUpload(t, "call.mp3", []byte("bytes"))
	rec := d.do(t, http.MethodPost, "/v1/transcriptions", body, ct)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestTranscribeEndpointNotConfigured(t *testing.T) {
	t.Parallel()
	srv, err := api.New(api.Config{Store: store.NewMemStore()})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	d := &testDeps{handler: srv.Handler()}

	body, ct := audioUpload(t, "call.mp3", []byte("bytes"))
	rec := d.do(t, http.MethodPost, "/v1/transcriptions", body, ct)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestScoreEndpointInlineTranscript(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	rec := d.postJSON(t, "/v1/scores", map[string]any{
		"transcription": "Hello there. Thanks for calling.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	report := decodeAs[scoring.Report](t, rec)
	if report.TotalScore != 9 || report.TotalPoints != 10 {
		t.Errorf("score = %d/%d, want 9/10", report.TotalScore, report.TotalPoints)
	}
	if len(report.CriteriaScores) != 2 {
		t.Errorf("criteria = %d, want 2", len(report.CriteriaScores))
	}
	if len(d.oracle.CompleteCalls) != 1 {
		t.Fatalf("oracle calls = %d, want 1", len(d.oracle.CompleteCalls))
	}
	if !d.oracle.CompleteCalls[0].Req.JSONResponse {
		t.Error("oracle request should demand a JSON response")
	}
}

func TestScoreEndpointPersistedRun(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)
	run := seedRun(t, d.store, "run-1")

	rec := d.postJSON(t, "/v1/scores", map[string]any{"run_id": run.ID, "mode": "v2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	stored, err := d.store.GetRun(context.Background(), run.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetRun after scoring: %v, %v", stored, err)
	}
	if stored.Score == nil {
		t.Fatal("score not attached to run")
	}
	if stored.Mode != "granular" {
		t.Errorf("Mode = %q, want granular", stored.Mode)
	}
	if stored.RubricVersion != "2.0" {
		t.Errorf("RubricVersion = %q, want 2.0", stored.RubricVersion)
	}
}

func TestScoreEndpointRunNotFound(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	rec := d.postJSON(t, "/v1/scores", map[string]any{"run_id": "nope"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestScoreEndpointModeValidation(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	tests := []struct {
		name string
		mode string
		want int
	}{
		{name: "unknown mode", mode: "v3", want: http.StatusBadRequest},
		{name: "discrete mode against granular rubric", mode: "v1", want: http.StatusBadRequest},
		{name: "explicit v2 matches", mode: "v2", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := d.postJSON(t, "/v1/scores", map[string]any{
				"mode":          tt.mode,
				"transcription": "Hello there.",
			})
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestScoreEndpointEmptyTranscript(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	rec := d.postJSON(t, "/v1/scores", map[string]any{"transcription": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestScoreEndpointFatalGateIsStillOK(t *testing.T) {
	t.Parallel()
	d := newTestServer(t, "brand_intro")
	d.oracle.CompleteResponse = &llm.CompletionResponse{Content: `{
		"greeting":    {"score": 4},
		"brand_intro": {"score": 0, "rationale": "Brand never mentioned"}
	}`}

	rec := d.postJSON(t, "/v1/scores", map[string]any{
		"transcription": "Hello there. Thanks for calling.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when the fatal gate fires", rec.Code)
	}

	report := decodeAs[scoring.Report](t, rec)
	if !report.FatalTriggered {
		t.Error("FatalTriggered = false, want true")
	}
	if report.TotalScore != 0 {
		t.Errorf("TotalScore = %d, want 0 after fatal gate", report.TotalScore)
	}
}

func TestScoreEndpointUnusableOraclePayload(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)
	d.oracle.CompleteResponse = &llm.CompletionResponse{Content: "not json at all"}

	rec := d.postJSON(t, "/v1/scores", map[string]any{"transcription": "Hello there."})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestSummaryEndpointPersistedRun(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)
	run := seedRun(t, d.store, "run-2")

	score := &scoring.Report{TotalScore: 9, TotalPoints: 10, Percentage: 90}
	if err := d.store.AttachScore(context.Background(), run.ID, "granular", "2.0", score); err != nil {
		t.Fatalf("AttachScore: %v", err)
	}

	rec := d.postJSON(t, "/v1/summaries", map[string]any{"run_id": run.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	report := decodeAs[summary.Report](t, rec)
	if report.OverallSummary != "A short polite call." {
		t.Errorf("OverallSummary = %q", report.OverallSummary)
	}

	stored, err := d.store.GetRun(context.Background(), run.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetRun after summary: %v, %v", stored, err)
	}
	if stored.Summary == nil {
		t.Error("summary not attached to run")
	}
}

func TestSummaryEndpointRunWithoutScore(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)
	run := seedRun(t, d.store, "run-3")

	rec := d.postJSON(t, "/v1/summaries", map[string]any{"run_id": run.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestSummaryEndpointMissingInputs(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	rec := d.postJSON(t, "/v1/summaries", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSummaryEndpointDegradedBackendStillOK(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)
	run := seedRun(t, d.store, "run-4")
	if err := d.store.AttachScore(context.Background(), run.ID, "granular", "2.0",
		&scoring.Report{TotalScore: 5, TotalPoints: 10, Percentage: 50}); err != nil {
		t.Fatalf("AttachScore: %v", err)
	}
	d.narrator.CompleteResponse = nil
	d.narrator.CompleteErr = errors.New("narrator offline")

	rec := d.postJSON(t, "/v1/summaries", map[string]any{"run_id": run.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with a degraded report", rec.Code)
	}
	report := decodeAs[summary.Report](t, rec)
	if !report.Degraded {
		t.Error("Degraded = false, want true")
	}
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	rec := d.do(t, http.MethodGet, "/v1/runs/missing", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	envelope := decodeAs[map[string]string](t, rec)
	if !strings.Contains(envelope["error"], "missing") {
		t.Errorf("error = %q, want the run id mentioned", envelope["error"])
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)
	for _, id := range []string{"run-a", "run-b", "run-c"} {
		seedRun(t, d.store, id)
	}

	rec := d.do(t, http.MethodGet, "/v1/runs?limit=2", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	list := decodeAs[struct {
		Runs []store.Run `json:"runs"`
	}](t, rec)
	if len(list.Runs) != 2 {
		t.Errorf("runs = %d, want 2", len(list.Runs))
	}
}

func TestListRunsInvalidLimit(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	rec := d.do(t, http.MethodGet, "/v1/runs?limit=banana", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListRunsEmptyIsNotNull(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	rec := d.do(t, http.MethodGet, "/v1/runs", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"runs":[]`) {
		t.Errorf("body = %s, want an empty runs array", rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	d := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := d.do(t, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
