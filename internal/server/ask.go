package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/asktra-labs/asktra/internal/pipeline"
)

// askPayload is the request body shared by /ask and /ask-stream.
type askPayload struct {
	Query            string         `json:"query"`
	IncludeSources   []string       `json:"include_sources"`
	DatasetOverrides map[string]any `json:"dataset_overrides"`
	PriorContext     string         `json:"prior_context"`
	ImageBase64      string         `json:"image_base64"`
	ImageMIME        string         `json:"image_mime"`
}

func (p askPayload) toRequest() pipeline.AskRequest {
	return pipeline.AskRequest{
		Query:            p.Query,
		IncludeSources:   p.IncludeSources,
		DatasetOverrides: p.DatasetOverrides,
		PriorContext:     p.PriorContext,
		ImageBase64:      p.ImageBase64,
		ImageMIME:        p.ImageMIME,
	}
}

func decodeAsk(r *http.Request) (askPayload, string) {
	var p askPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return p, "invalid request body"
	}
	if strings.TrimSpace(p.Query) == "" {
		return p, "query is required"
	}
	return p, ""
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	payload, problem := decodeAsk(r)
	if problem != "" {
		respondError(w, http.StatusBadRequest, problem)
		return
	}

	result, err := s.opts.Pipeline.Ask(r.Context(), payload.toRequest())
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	payload, problem := decodeAsk(r)
	if problem != "" {
		respondError(w, http.StatusBadRequest, problem)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	writeFrame := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			zap.L().Warn("encode sse frame failed", zap.Error(err))
			return
		}
		if _, err := w.Write([]byte("event: " + event + "\ndata: " + string(data) + "\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}

	err := s.opts.Pipeline.AskStream(r.Context(), payload.toRequest(), func(e pipeline.Event) {
		switch e.Type {
		case pipeline.EventStep:
			writeFrame("step", map[string]string{"message": e.Message})
		case pipeline.EventResult:
			writeFrame("result", e.Result)
		case pipeline.EventError:
			writeFrame("error", map[string]string{"detail": e.Message})
		}
	})
	if err != nil {
		zap.L().Error("ask stream failed", zap.Error(err))
	}
}
