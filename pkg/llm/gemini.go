package llm

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	genai "google.golang.org/genai"
)

// geminiClient talks to the Gemini API through the official genai SDK.
type geminiClient struct {
	cli   *genai.Client
	model string
}

func newGeminiClient(ctx context.Context, cfg Config) (*geminiClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, ErrNoCredential
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: create gemini client")
	}
	return &geminiClient{cli: cli, model: cfg.Model}, nil
}

func (g *geminiClient) Model() string { return g.model }

func (g *geminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	parts := []*genai.Part{{Text: req.System + "\n\n---\n\n" + req.User}}

	if req.Image != nil && strings.TrimSpace(req.Image.Base64) != "" {
		data, err := base64.StdEncoding.DecodeString(req.Image.Base64)
		if err != nil {
			// A broken attachment degrades to a text-only call.
			zap.L().Warn("llm: invalid image attachment ignored", zap.Error(err))
		} else {
			mime := req.Image.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: mime, Data: data},
			})
		}
	}

	config := &genai.GenerateContentConfig{}
	if req.JSONMode {
		config.ResponseMIMEType = "application/json"
	}
	if level := normalizeThinkingLevel(req.Thinking); level != "" {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingLevel: genai.ThinkingLevel(level),
		}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: parts}},
		config,
	)
	if err != nil {
		return "", eris.Wrapf(err, "llm: gemini generate (%s)", g.model)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	return selectText(resp.Candidates[0].Content.Parts, req.JSONMode), nil
}

// selectText picks the model's answer out of the candidate parts. Thinking
// models interleave thought parts with the answer, so in JSON mode prefer
// the last part that carries a JSON object; otherwise use the last non-empty
// part.
func selectText(parts []*genai.Part, jsonMode bool) string {
	var texts []string
	for _, p := range parts {
		if p == nil {
			continue
		}
		if t := strings.TrimSpace(p.Text); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return ""
	}
	if jsonMode {
		for i := len(texts) - 1; i >= 0; i-- {
			if strings.Contains(texts[i], "{") && strings.Contains(texts[i], "}") {
				return texts[i]
			}
		}
	}
	return texts[len(texts)-1]
}

// normalizeThinkingLevel maps a free-form hint to the API's level values.
// Unrecognized hints disable the thinking config rather than failing the call.
func normalizeThinkingLevel(level string) string {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "LOW":
		return "LOW"
	case "HIGH":
		return "HIGH"
	}
	return ""
}
