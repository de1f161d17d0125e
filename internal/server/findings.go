package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/asktra-labs/asktra/internal/model"
	"github.com/asktra-labs/asktra/internal/store"
)

func (s *Server) handleListFindings(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		respondError(w, http.StatusNotFound, "findings archive disabled")
		return
	}

	filter := store.ListFilter{Query: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	findings, err := s.opts.Archive.ListFindings(r.Context(), filter)
	if err != nil {
		respondFailure(w, err)
		return
	}
	if findings == nil {
		findings = []model.Finding{}
	}
	respondJSON(w, http.StatusOK, findings)
}

func (s *Server) handleGetFinding(w http.ResponseWriter, r *http.Request) {
	if s.opts.Archive == nil {
		respondError(w, http.StatusNotFound, "findings archive disabled")
		return
	}

	finding, err := s.opts.Archive.GetFinding(r.Context(), chi.URLParam(r, "id"))
	if eris.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "finding not found")
		return
	}
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, finding)
}
