package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quillhq/convoexport/internal/pipeline"
	"github.com/quillhq/convoexport/internal/record"
)

// ExportRequest is the stateless convert request: one platform-tagged
// conversation payload.
type ExportRequest struct {
	Platform string          `json:"platform"`
	Payload  json.RawMessage `json:"payload"`
	Source   string          `json:"source,omitempty"`
}

// ExportResponse carries the generated CSV files, content including the BOM.
type ExportResponse struct {
	Files []record.ExportFile `json:"files"`
}

// export handles POST /api/v1/exports: run the pipeline, return the files,
// store nothing.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid JSON: %v"}`, err), http.StatusBadRequest)
		return
	}

	files, err := s.pipe.Process(req.Platform, req.Payload)
	if err != nil {
		writeExportError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ExportResponse{Files: files})
}

// createCapture handles POST /api/v1/captures: persist the payload without
// exporting it.
func (s *Server) createCapture(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, `{"error":"storage not configured"}`, http.StatusServiceUnavailable)
		return
	}

	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid JSON: %v"}`, err), http.StatusBadRequest)
		return
	}
	if _, ok := record.ParsePlatform(req.Platform); !ok {
		http.Error(w, fmt.Sprintf(`{"error":"unsupported platform: %s"}`, req.Platform), http.StatusBadRequest)
		return
	}
	if len(req.Payload) == 0 {
		http.Error(w, `{"error":"payload is required"}`, http.StatusBadRequest)
		return
	}

	id, err := s.store.SaveCapture(r.Context(), req.Platform, req.Payload, req.Source)
	if err != nil {
		slog.Error("failed to store capture", "error", err)
		http.Error(w, `{"error":"failed to store capture"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"capture_id": id.String()})
}

func (s *Server) listCaptures(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, `{"error":"storage not configured"}`, http.StatusServiceUnavailable)
		return
	}

	list, err := s.store.ListCaptures(r.Context(), r.URL.Query().Get("platform"), 50)
	if err != nil {
		slog.Error("failed to list captures", "error", err)
		http.Error(w, `{"error":"failed to list captures"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"captures": list, "count": len(list)})
}

func (s *Server) getCapture(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, `{"error":"storage not configured"}`, http.StatusServiceUnavailable)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid capture id"}`, http.StatusBadRequest)
		return
	}

	c, err := s.store.GetCapture(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"capture not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":          c.ID,
		"platform":    c.Platform,
		"payload":     c.Payload,
		"source":      c.Source,
		"captured_at": c.CapturedAt,
	})
}

func (s *Server) deleteCapture(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, `{"error":"storage not configured"}`, http.StatusServiceUnavailable)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid capture id"}`, http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteCapture(r.Context(), id); err != nil {
		http.Error(w, `{"error":"capture not found"}`, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportCapture handles POST /api/v1/captures/{id}/export: re-run the
// pipeline over a stored payload and record the export.
func (s *Server) exportCapture(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, `{"error":"storage not configured"}`, http.StatusServiceUnavailable)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid capture id"}`, http.StatusBadRequest)
		return
	}

	c, err := s.store.GetCapture(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"capture not found"}`, http.StatusNotFound)
		return
	}

	files, err := s.pipe.Process(c.Platform, c.Payload)
	if err != nil {
		writeExportError(w, err)
		return
	}

	if _, err := s.store.RecordExport(r.Context(), id, len(files)); err != nil {
		slog.Warn("failed to record export", "capture_id", id, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ExportResponse{Files: files})
}

// writeExportError maps the validation taxonomy onto HTTP statuses so the
// popup can tell "unsupported platform" from "no data to export".
func writeExportError(w http.ResponseWriter, err error) {
	var verr *pipeline.ValidationError
	if errors.As(err, &verr) {
		status := http.StatusUnprocessableEntity
		switch verr.Reason {
		case pipeline.ReasonUnsupportedPlatform:
			status = http.StatusBadRequest
		case pipeline.ReasonPayloadTooLarge:
			status = http.StatusRequestEntityTooLarge
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": verr.Detail, "reason": verr.Reason})
		return
	}

	slog.Error("export failed", "error", err)
	http.Error(w, `{"error":"export failed"}`, http.StatusInternalServerError)
}
