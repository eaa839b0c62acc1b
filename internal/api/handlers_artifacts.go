package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	files, err := s.svc.ListArtifacts(chi.URLParam(r, "agentID"), r.URL.Query().Get("pattern"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": files})
}

func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Operation(chi.URLParam(r, "agentID"), chi.URLParam(r, "opID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"themes": s.svc.Themes()})
}

func (s *Server) handleRenderStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"engine": s.cfg.RenderEngine,
		"stats":  s.svc.RenderStats(),
	})
}
