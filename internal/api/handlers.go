package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/callscope/callaudit/internal/audit"
	"github.com/callscope/callaudit/internal/rubric"
	"github.com/callscope/callaudit/internal/scoring"
	"github.com/callscope/callaudit/internal/segment"
	"github.com/callscope/callaudit/internal/store"
	"github.com/callscope/callaudit/internal/transcribe"
)

// handleTranscribe accepts a multipart audio upload under the "file" field,
// runs it through the STT pipeline, and persists the resulting run.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing or unreadable %q upload: %v", "file", err))
		return
	}
	defer file.Close()

	if header.Size == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	slog.Info("transcription request",
		"file", header.Filename,
		"size_bytes", header.Size,
		"content_type", header.Header.Get("Content-Type"))

	transcript, err := s.transcriber.Transcribe(ctx, file, header.Filename)
	if err != nil {
		s.metrics.RecordStage(ctx, "transcription", "error")
		writeError(w, http.StatusBadGateway, fmt.Sprintf("transcription failed: %v", err))
		return
	}
	s.metrics.RecordStage(ctx, "transcription", "ok")

	run := &store.Run{
		FileName:   header.Filename,
		Provider:   transcript.Provider,
		Transcript: transcript,
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("persist run: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// scoreRequest scores either a persisted run (run_id) or an inline
// transcript. Mode selects the rubric contract: "v1" is the discrete
// yes/no/na rubric, "v2" the granular one. Default is v2.
type scoreRequest struct {
	RunID           string            `json:"run_id,omitempty"`
	Mode            string            `json:"mode,omitempty"`
	Transcription   string            `json:"transcription,omitempty"`
	SpeakerSegments []segment.Segment `json:"speaker_segments,omitempty"`
}

// rubricModeFor maps the wire mode names to rubric modes.
func rubricModeFor(mode string) (rubric.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "v2":
		return rubric.ModeGranular, nil
	case "v1":
		return rubric.ModeDiscrete, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want v1 or v2)", mode)
	}
}

// handleScore evaluates a transcript against the configured rubric. A
// triggered fatal gate is a defined scoring outcome, not an error, so it
// still responds 200.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.auditor == nil {
		writeError(w, http.StatusServiceUnavailable, "scoring is not configured")
		return
	}

	var req scoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}

	mode, err := rubricModeFor(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if got := s.rubric.Mode(); got != mode {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("configured rubric %q is %s; requested mode maps to %s", s.rubric.Title, got, mode))
		return
	}

	text := req.Transcription
	segments := req.SpeakerSegments
	if req.RunID != "" {
		run, status, err := s.lookupRun(ctx, req.RunID)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}
		text = run.Transcript.Transcription
		segments = run.Transcript.SpeakerSegments
	}

	report, err := s.auditor.Score(ctx, s.rubric, text, segments, s.knowledge)
	if err != nil {
		switch {
		case errors.Is(err, audit.ErrEmptyTranscript):
			writeError(w, http.StatusBadRequest, "transcript is empty")
		case errors.Is(err, scoring.ErrBadPayload):
			s.metrics.RecordStage(ctx, "scoring", "error")
			writeError(w, http.StatusBadGateway, fmt.Sprintf("oracle returned an unusable payload: %v", err))
		default:
			s.metrics.RecordStage(ctx, "scoring", "error")
			writeError(w, http.StatusBadGateway, fmt.Sprintf("scoring failed: %v", err))
		}
		return
	}
	s.metrics.RecordStage(ctx, "scoring", "ok")
	if report.FatalTriggered {
		s.metrics.FatalGates.Add(ctx, 1)
	}

	if req.RunID != "" {
		if err := s.runs.AttachScore(ctx, req.RunID, string(mode), s.rubric.Version, report); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("persist score: %v", err))
			return
		}
	}

	writeJSON(w, http.StatusOK, report)
}

// summaryRequest generates a narrative summary for a persisted, already
// scored run (run_id) or for an inline transcript + score pair.
type summaryRequest struct {
	RunID      string                    `json:"run_id,omitempty"`
	Transcript *transcribe.Transcription `json:"transcript,omitempty"`
	Score      *scoring.Report           `json:"score,omitempty"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.summarizer == nil {
		writeError(w, http.StatusServiceUnavailable, "summaries are not configured")
		return
	}

	var req summaryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}

	transcript := req.Transcript
	score := req.Score
	if req.RunID != "" {
		run, status, err := s.lookupRun(ctx, req.RunID)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}
		if run.Score == nil {
			writeError(w, http.StatusConflict, fmt.Sprintf("run %q has no score yet", req.RunID))
			return
		}
		transcript = run.Transcript
		score = run.Score
	}

	var result *segment.Result
	if transcript != nil {
		result = &transcript.Result
	}

	report, err := s.summarizer.Generate(ctx, result, score)
	if err != nil {
		s.metrics.RecordStage(ctx, "summary", "error")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("summary failed: %v", err))
		return
	}
	s.metrics.RecordStage(ctx, "summary", "ok")

	if req.RunID != "" {
		if err := s.runs.AttachSummary(ctx, req.RunID, report); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("persist summary: %v", err))
			return
		}
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, status, err := s.lookupRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// listResponse wraps the run collection so the shape can grow (cursors,
// counts) without breaking clients.
type listResponse struct {
	Runs []store.Run `json:"runs"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, listResponse{Runs: runs})
}

// lookupRun fetches a run and classifies the failure as an HTTP status.
func (s *Server) lookupRun(ctx context.Context, id string) (*store.Run, int, error) {
	if id == "" {
		return nil, http.StatusBadRequest, errors.New("run id must not be empty")
	}
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("load run: %w", err)
	}
	if run == nil {
		return nil, http.StatusNotFound, fmt.Errorf("run %q not found", id)
	}
	return run, http.StatusOK, nil
}
