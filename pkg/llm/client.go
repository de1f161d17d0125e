// Package llm wraps the hosted model APIs behind one small interface: a
// system/user prompt pair in, the model's text out. Two backends are
// supported, selected by model name: Gemini (google.golang.org/genai) and
// Claude (anthropic-sdk-go).
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNoCredential is returned when no API key is configured for the selected
// backend. Callers map it to a "service not configured" response rather than
// a generic failure.
var ErrNoCredential = eris.New("llm: no API credential configured")

// Client is the single remote capability the pipeline depends on.
type Client interface {
	// Generate sends one prompt to the model and returns its textual output.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// Model returns the model identifier this client talks to.
	Model() string
}

// GenerateRequest describes one model call.
type GenerateRequest struct {
	System string
	User   string
	// JSONMode asks the model for a structured JSON object instead of prose.
	JSONMode bool
	// Image optionally attaches an inline image (screenshots, dashboards).
	Image *ImageAttachment
	// Thinking is an optional extended-reasoning level hint ("low", "high").
	Thinking string
}

// ImageAttachment is a base64-encoded inline image.
type ImageAttachment struct {
	Base64   string
	MIMEType string // defaults to image/png
}

// Config selects and tunes a backend.
type Config struct {
	Model           string
	GeminiAPIKey    string
	AnthropicAPIKey string
	ThinkingLevel   string // default Thinking hint applied when a request has none

	// RPS/Burst bound the call rate; zero disables limiting.
	RPS   float64
	Burst int
	// Timeout applies per call when the caller's context has no deadline.
	// Default 60s.
	Timeout time.Duration
}

// New creates a Client for cfg.Model. Model names beginning with "claude"
// use the Anthropic backend; everything else goes to Gemini.
func New(ctx context.Context, cfg Config) (Client, error) {
	var inner Client
	var err error
	if strings.HasPrefix(strings.ToLower(cfg.Model), "claude") {
		inner, err = newClaudeClient(cfg)
	} else {
		inner, err = newGeminiClient(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	return wrap(inner, cfg), nil
}

// wrap applies rate limiting and the default call timeout around a backend.
func wrap(inner Client, cfg Config) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return &guardedClient{inner: inner, limiter: limiter, timeout: timeout, thinking: cfg.ThinkingLevel}
}

type guardedClient struct {
	inner    Client
	limiter  *rate.Limiter
	timeout  time.Duration
	thinking string
}

func (g *guardedClient) Model() string { return g.inner.Model() }

func (g *guardedClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "llm: rate limit wait")
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if req.Thinking == "" {
		req.Thinking = g.thinking
	}

	zap.L().Debug("llm: generate",
		zap.String("model", g.inner.Model()),
		zap.Bool("json_mode", req.JSONMode),
		zap.Bool("has_image", req.Image != nil),
		zap.Int("system_bytes", len(req.System)),
		zap.Int("user_bytes", len(req.User)),
	)

	return g.inner.Generate(ctx, req)
}
