package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/badgebind/internal/binder"
	"github.com/dgallion1/badgebind/internal/datadoc"
)

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}

	doc, err := s.source.Fetch(r.Context())
	if err != nil {
		s.log.Error("error fetching data", "error", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	out := map[string]any{"path": path}
	if v, ok := datadoc.Resolve(doc, path); ok {
		out["found"] = true
		out["kind"] = v.Kind.String()
		out["text"] = v.String()
	} else {
		out["found"] = false
		out["text"] = binder.NotFoundText(path)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		jsonError(w, "collector not configured", http.StatusServiceUnavailable)
		return
	}
	if !s.collectMu.TryLock() {
		jsonError(w, "collection already running", http.StatusConflict)
		return
	}
	defer s.collectMu.Unlock()

	rep, err := s.collector.Refresh(r.Context(), s.cfg.HTBUserID, s.cfg.DatasetPath)
	if err != nil {
		s.log.Error("collect failed", "user_id", s.cfg.HTBUserID, "error", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

func (s *Server) handleBindStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "bind stats unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"attr":        s.binder.Attr(),
		"stats":       s.stats.Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
