package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/opsacademy/toolcalc/formula"
	"github.com/opsacademy/toolcalc/tool"
)

type evaluateRequest struct {
	Formula   string             `json:"formula"`
	Variables map[string]float64 `json:"variables,omitempty"`
}

type evaluateResponse struct {
	Value float64 `json:"value"`
}

type lintRequest struct {
	Formula string `json:"formula"`
}

type lintResponse struct {
	Issues      []formula.Issue `json:"issues"`
	Identifiers []string        `json:"identifiers"`
}

type toolRequest struct {
	ID       string      `json:"id,omitempty"`
	LessonID string      `json:"lesson_id,omitempty"`
	Name     string      `json:"name,omitempty"`
	Config   tool.Config `json:"config"`
}

type toolResponse struct {
	tool.Record
	Diagnostics []tool.Diagnostic `json:"diagnostics,omitempty"`
}

type computeRequest struct {
	Inputs map[string]string `json:"inputs"`
}

type diagnosticsResponse struct {
	ID          string            `json:"id"`
	Diagnostics []tool.Diagnostic `json:"diagnostics"`
	Errors      int               `json:"errors"`
	Warnings    int               `json:"warnings"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "metrics are not enabled")
		return
	}
	points, err := s.metrics.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "METRICS_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": points})
}

// handleEvaluate evaluates one formula. It never fails on formula content.
// Ad-hoc formulas bypass the program cache, which only holds formulas of
// stored tools.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	value := formula.Evaluate(req.Formula, formula.Env(req.Variables))
	writeJSON(w, http.StatusOK, evaluateResponse{Value: value})
}

func (s *Server) handleLint(w http.ResponseWriter, r *http.Request) {
	var req lintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp := lintResponse{
		Issues:      formula.Lint(req.Formula),
		Identifiers: formula.Identifiers(req.Formula),
	}
	if resp.Issues == nil {
		resp.Issues = []formula.Issue{}
	}
	if resp.Identifiers == nil {
		resp.Identifiers = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLintReport(w http.ResponseWriter, _ *http.Request) {
	if s.lint == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "lint sweeps are not enabled")
		return
	}
	report, ok := s.lint.LastReport()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no lint sweep has run yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nonNilRecords(records))
}

func (s *Server) handleListLessonTools(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListByLesson(r.Context(), r.PathValue("lesson_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nonNilRecords(records))
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("tool %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleCreateTool stores a new tool configuration. Configurations with
// error diagnostics are rejected; warnings are returned with the record.
func (s *Server) handleCreateTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if !decodeBody(w, r, &req) {
		return
	}

	diags := tool.Validate(req.Config)
	if tool.HasErrors(diags) {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "tool validation failed", diagMessages(tool.Errors(diags))...)
		return
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.New().String()
	}
	now := s.now()
	rec := tool.Record{
		ID:        id,
		LessonID:  req.LessonID,
		Name:      recordName(req),
		Config:    req.Config,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Create(r.Context(), rec); err != nil {
		if errors.Is(err, tool.ErrToolExists) {
			writeError(w, http.StatusConflict, "CONFLICT", fmt.Sprintf("tool %q already exists", id))
			return
		}
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	s.logger.Info("tool created", "id", id, "lesson_id", rec.LessonID, "warnings", len(diags))
	writeJSON(w, http.StatusCreated, toolResponse{Record: rec, Diagnostics: diags})
}

func (s *Server) handleUpdateTool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, ok, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("tool %q not found", id))
		return
	}

	var req toolRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID != "" && req.ID != id {
		writeError(w, http.StatusBadRequest, "ID_MISMATCH", fmt.Sprintf("body id %q does not match path id %q", req.ID, id))
		return
	}

	diags := tool.Validate(req.Config)
	if tool.HasErrors(diags) {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "tool validation failed", diagMessages(tool.Errors(diags))...)
		return
	}

	rec := tool.Record{
		ID:        id,
		LessonID:  req.LessonID,
		Name:      recordName(req),
		Config:    req.Config,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: s.now(),
	}
	if err := s.store.Update(r.Context(), rec); err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("tool %q not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toolResponse{Record: rec, Diagnostics: diags})
}

func (s *Server) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, tool.ErrToolNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("tool %q not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleComputeTool recomputes a stored tool's outputs from raw input text.
func (s *Server) handleComputeTool(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("tool %q not found", id))
		return
	}

	var req computeRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	writeJSON(w, http.StatusOK, tool.ComputeWith(s.cache, rec.Config, req.Inputs))
}

func (s *Server) handleToolDiagnostics(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("tool %q not found", id))
		return
	}

	diags := tool.Validate(rec.Config)
	if diags == nil {
		diags = []tool.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, diagnosticsResponse{
		ID:          id,
		Diagnostics: diags,
		Errors:      len(tool.Errors(diags)),
		Warnings:    len(tool.Warnings(diags)),
	})
}

func recordName(req toolRequest) string {
	if name := strings.TrimSpace(req.Name); name != "" {
		return name
	}
	return req.Config.Title
}

func nonNilRecords(records []tool.Record) []tool.Record {
	if records == nil {
		return []tool.Record{}
	}
	return records
}

func diagMessages(diags []tool.Diagnostic) []string {
	msgs := make([]string, len(diags))
	for i, d := range diags {
		msgs[i] = d.String()
	}
	return msgs
}
