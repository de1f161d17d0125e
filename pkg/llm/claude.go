package llm

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const claudeMaxTokens = 8192

// claudeClient talks to the Anthropic Messages API. The API has no JSON
// response mode, so JSONMode is enforced by instruction instead.
type claudeClient struct {
	cli   sdk.Client
	model string
}

func newClaudeClient(cfg Config) (*claudeClient, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, ErrNoCredential
	}
	return &claudeClient{
		cli:   sdk.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey)),
		model: cfg.Model,
	}, nil
}

func (c *claudeClient) Model() string { return c.model }

func (c *claudeClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	system := req.System
	if req.JSONMode {
		system += "\n\nRespond with only a valid JSON object. No prose, no code fences."
	}

	blocks := []sdk.ContentBlockParamUnion{sdk.NewTextBlock(req.User)}
	if req.Image != nil && strings.TrimSpace(req.Image.Base64) != "" {
		mime := req.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		blocks = append(blocks, sdk.NewImageBlockBase64(mime, req.Image.Base64))
	}

	msg, err := c.cli.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: claudeMaxTokens,
		System:    []sdk.TextBlockParam{{Text: system}},
		Messages:  []sdk.MessageParam{{Role: sdk.MessageParamRoleUser, Content: blocks}},
	})
	if err != nil {
		return "", eris.Wrapf(err, "llm: claude generate (%s)", c.model)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	out := sb.String()
	if out == "" {
		zap.L().Warn("llm: claude returned no text blocks", zap.String("model", c.model))
	}
	return out, nil
}
