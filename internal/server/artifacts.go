package server

import (
	"encoding/json"
	"net/http"

	"github.com/asktra-labs/asktra/internal/artifacts"
	"github.com/asktra-labs/asktra/internal/dataset"
	"github.com/asktra-labs/asktra/internal/model"
)

// findingPayload carries the finding fields artifact endpoints work from.
// Every field is optional; empty ones degrade to placeholders downstream.
type findingPayload struct {
	InferredVersion  string         `json:"inferred_version"`
	RootCause        string         `json:"root_cause"`
	Contradictions   []string       `json:"contradictions"`
	Risk             string         `json:"risk"`
	FixSteps         []string       `json:"fix_steps"`
	Verification     string         `json:"verification"`
	Sources          []string       `json:"sources"`
	DatasetOverrides map[string]any `json:"dataset_overrides"`
}

func (p findingPayload) finding() model.CausalFinding {
	return model.CausalFinding{
		RootCause:      p.RootCause,
		Contradictions: p.Contradictions,
		Risk:           p.Risk,
		FixSteps:       p.FixSteps,
		Verification:   p.Verification,
		Sources:        p.Sources,
	}
}

func (s *Server) handleEmitDocs(w http.ResponseWriter, r *http.Request) {
	var payload findingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	base, err := s.opts.Data.Load(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}
	ds := dataset.ApplyOverrides(base, payload.DatasetOverrides)

	markdown, err := artifacts.EmitDocs(r.Context(), s.opts.Client, s.opts.Prompts, ds, payload.InferredVersion, payload.finding())
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"markdown": markdown})
}

func (s *Server) handleEmitReconciliationPatch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FindingID     string `json:"finding_id"`
		Target        string `json:"target"`
		Action        string `json:"action"`
		CausalSummary string `json:"causal_summary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := artifacts.EmitReconciliationPatch(r.Context(), s.opts.Client, s.opts.Prompts,
		payload.FindingID, payload.Target, payload.Action, payload.CausalSummary)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"action":            payload.Action,
		"patch_description": out,
		"pr_body":           out,
	})
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	var payload findingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bundle, err := artifacts.GenerateBundle(r.Context(), s.opts.BundleClient, s.opts.Prompts, artifacts.BundleInput{
		Version:        payload.InferredVersion,
		RootCause:      payload.RootCause,
		Contradictions: payload.Contradictions,
		Risk:           payload.Risk,
		FixSteps:       payload.FixSteps,
		Verification:   payload.Verification,
		Sources:        payload.Sources,
		Fallback:       s.opts.BundleFallback,
	})
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bundle)
}
