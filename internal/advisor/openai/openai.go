package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vbonduro/skintell/internal/advisor"
)

var ErrNoChoices = errors.New("openai: no choices in response")

type OpenAIAdvisor struct {
	client openai.Client
	model  string
}

// NewOpenAIAdvisor builds an advisor on the Chat Completions API. SDK retries
// are disabled: every Advise is a single attempt.
func NewOpenAIAdvisor(apiKey, model, baseURL string) *OpenAIAdvisor {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdvisor{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (a *OpenAIAdvisor) buildParams(p advisor.Prompt) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}

	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(p.Parts))
	for _, pt := range p.Parts {
		if pt.Image != nil {
			parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: pt.Image.DataURI(),
			}))
			continue
		}
		parts = append(parts, openai.TextContentPart(pt.Text))
	}
	messages = append(messages, openai.UserMessage(parts))

	params := openai.ChatCompletionNewParams{
		Model:       a.model,
		Messages:    messages,
		Temperature: openai.Float(p.Config.Temperature),
	}
	if p.Config.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.Config.MaxOutputTokens))
	}
	if p.Config.TopP > 0 {
		params.TopP = openai.Float(p.Config.TopP)
	}
	return params
}

func (a *OpenAIAdvisor) GetAdvice(ctx context.Context, p advisor.Prompt) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, a.buildParams(p))
	if err != nil {
		return "", fmt.Errorf("failed to call openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
