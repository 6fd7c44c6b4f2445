package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dgallion1/badgebind/internal/page"
	"github.com/dgallion1/badgebind/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

type snapshotRequest struct {
	Transparent bool `json:"transparent"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	tpl, err := page.ReadTemplate(s.cfg.TemplatePath, s.binder.Attr())
	if err != nil {
		s.log.Error("read template", "path", s.cfg.TemplatePath, "error", err)
		jsonError(w, "template unavailable", http.StatusInternalServerError)
		return
	}

	job := pipeline.NewJob(tpl, req.Transparent)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/snapshots/%s/status", job.ID),
		"png_url":  fmt.Sprintf("/api/snapshots/%s/png", job.ID),
	})
}

func (s *Server) handleSnapshotStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleSnapshotPNG(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	if snap.Status != pipeline.StatusCompleted {
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	img := job.PNG()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("ETag", `"`+pipeline.ContentHashHex(img)[:16]+`"`)
	w.Write(img)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
