package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/reoring/jsontab"
	"github.com/reoring/jsontab/internal/logging"
	"github.com/reoring/jsontab/metadata"
)

// ConvertRequest is the body of POST /v1/convert. Path and OutputDir must
// resolve inside the server root; relative values are taken from it. Empty
// OutputDir and Encoding fall back to the configured values.
type ConvertRequest struct {
	Path      string `json:"path"`
	OutputDir string `json:"outputDir,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	Format    string `json:"format,omitempty"`
}

// ConvertResponse describes a finished conversion. Schema is the document
// itself for the json format and a YAML string for the yaml format.
type ConvertResponse struct {
	JobID        string         `json:"jobId"`
	ArtifactPath string         `json:"artifactPath"`
	Rows         int            `json:"rows"`
	Columns      int            `json:"columns"`
	Elements     int            `json:"elements"`
	Checksum     string         `json:"checksum"`
	DurationMS   int64          `json:"durationMs"`
	Schema       any            `json:"schema"`
	Warnings     []WarningEntry `json:"warnings"`
}

// WarningEntry is one non-fatal finding.
type WarningEntry struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Path      string `json:"path,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error(), "")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.respondError(w, r, http.StatusBadRequest, "bad_request", "path is required", "")
		return
	}
	format, err := metadata.ParseFormat(req.Format)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "bad_request", err.Error(), "")
		return
	}

	path, err := confine(s.root, req.Path)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "bad_request", err.Error(), "")
		return
	}
	in := s.convert.Input(path)
	if req.OutputDir != "" {
		dir, err := confine(s.root, req.OutputDir)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "bad_request", err.Error(), "")
			return
		}
		in.OutputDir = dir
	}
	if req.Encoding != "" {
		in.Encoding = req.Encoding
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, http.StatusServiceUnavailable, "busy", err.Error(), "")
		return
	}
	res, err := s.converter(r.Context()).Run(r.Context(), in)
	s.limiter.Release()
	if err != nil {
		s.respondConvertError(w, r, err)
		return
	}

	resp := ConvertResponse{
		JobID:        res.JobID,
		ArtifactPath: res.ArtifactPath,
		Rows:         res.Rows,
		Columns:      res.Columns,
		Elements:     res.Elements,
		Checksum:     res.ChecksumHex(),
		DurationMS:   res.Duration.Milliseconds(),
		Schema:       json.RawMessage(res.Schema),
		Warnings:     make([]WarningEntry, 0, len(res.Warnings)),
	}
	if format == metadata.FormatYAML {
		y, err := res.Document.YAML()
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, jsontab.CodeSchema, err.Error(), "")
			return
		}
		resp.Schema = string(y)
	}
	for _, iss := range res.Warnings {
		resp.Warnings = append(resp.Warnings, WarningEntry{Code: iss.Code, Path: iss.Path, Message: iss.Message})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.limiter.Status())
}

// respondConvertError maps conversion failures to HTTP status codes.
func (s *Server) respondConvertError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, jsontab.ErrInvalidOptions):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, jsontab.ErrFormat):
		status = http.StatusUnprocessableEntity
	}
	path := ""
	if e, ok := jsontab.AsError(err); ok {
		code, path = e.Code, e.Path
	}
	s.respondError(w, r, status, code, err.Error(), path)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, code, msg, path string) {
	reqID := middleware.GetReqID(r.Context())
	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"status", status,
		"code", code,
		"error", msg,
	)
	respondJSON(w, status, ErrorResponse{Code: code, Message: msg, Path: path, RequestID: reqID})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
