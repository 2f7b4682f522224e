package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/skintell/internal/advisor"
)

var ErrNoText = errors.New("claude: response has no text block")

type ClaudeAdvisor struct {
	client *anthropic.Client
	model  string
}

// NewClaudeAdvisor builds an advisor on the Anthropic Messages API. baseURL
// may be empty to use the public endpoint.
func NewClaudeAdvisor(apiKey, model, baseURL string) *ClaudeAdvisor {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &ClaudeAdvisor{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

// buildRequest maps a prompt onto one user message. Anthropic takes the
// system prompt separately.
func (a *ClaudeAdvisor) buildRequest(p advisor.Prompt) anthropic.MessagesRequest {
	contents := make([]anthropic.MessageContent, 0, len(p.Parts))
	for _, pt := range p.Parts {
		if pt.Image != nil {
			contents = append(contents, anthropic.NewImageMessageContent(
				anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(pt.Image.MimeType),
					base64.StdEncoding.EncodeToString(pt.Image.Data),
				),
			))
			continue
		}
		contents = append(contents, anthropic.NewTextMessageContent(pt.Text))
	}

	temperature := float32(p.Config.Temperature)
	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(a.model),
		System:      p.System,
		MaxTokens:   p.Config.MaxOutputTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: contents,
		}},
	}
	if p.Config.TopK > 0 {
		topK := p.Config.TopK
		req.TopK = &topK
	}
	return req
}

func (a *ClaudeAdvisor) GetAdvice(ctx context.Context, p advisor.Prompt) (string, error) {
	resp, err := a.client.CreateMessages(ctx, a.buildRequest(p))
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText && c.Text != nil && *c.Text != "" {
			return *c.Text, nil
		}
	}
	return "", ErrNoText
}

// normaliseMIME maps image types onto the set the Anthropic API accepts.
// Unknown types are coerced to jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
