package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/mindmapper/internal/pipeline"
)

// bodyLimit leaves room for JSON framing around the largest accepted file.
func (s *Server) bodyLimit() int64 {
	return s.cfg.MaxFileBytes + 1<<20
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.GenerateRequest
	if err := decodeBody(w, r, s.bodyLimit(), &req); err != nil {
		writeError(w, err)
		return
	}
	req.AgentID = chi.URLParam(r, "agentID")

	res, err := s.svc.Generate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	var req pipeline.OutlineRequest
	if err := decodeBody(w, r, s.bodyLimit(), &req); err != nil {
		writeError(w, err)
		return
	}
	req.AgentID = chi.URLParam(r, "agentID")

	res, err := s.svc.FromOutline(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleRenderFile(w http.ResponseWriter, r *http.Request) {
	var req pipeline.FileRequest
	if err := decodeBody(w, r, s.bodyLimit(), &req); err != nil {
		writeError(w, err)
		return
	}
	req.AgentID = chi.URLParam(r, "agentID")

	res, err := s.svc.RenderFile(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleCustomize(w http.ResponseWriter, r *http.Request) {
	var req pipeline.GenerateRequest
	if err := decodeBody(w, r, s.bodyLimit(), &req); err != nil {
		writeError(w, err)
		return
	}
	req.AgentID = chi.URLParam(r, "agentID")

	res, err := s.svc.Customize(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	var req pipeline.StructureRequest
	if err := decodeBody(w, r, s.bodyLimit(), &req); err != nil {
		writeError(w, err)
		return
	}
	req.AgentID = chi.URLParam(r, "agentID")

	res, err := s.svc.Structure(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
