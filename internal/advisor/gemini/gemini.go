package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/skintell/internal/advisor"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

var ErrNoCandidate = errors.New("gemini: response has no candidate text")

// request types mirror the generateContent REST schema.
type request struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini returned status %d: %s", e.StatusCode, e.Body)
}

type GeminiAdvisor struct {
	apiKey  string
	model   string
	client  *http.Client
	baseURL string
}

func NewGeminiAdvisor(apiKey, model, baseURL string) *GeminiAdvisor {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GeminiAdvisor{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func buildRequest(p advisor.Prompt) request {
	req := request{
		Contents: []content{{Role: "user", Parts: make([]part, 0, len(p.Parts))}},
		GenerationConfig: generationConfig{
			Temperature:     p.Config.Temperature,
			TopK:            p.Config.TopK,
			TopP:            p.Config.TopP,
			MaxOutputTokens: p.Config.MaxOutputTokens,
		},
	}
	if p.System != "" {
		req.SystemInstruction = &content{Role: "system", Parts: []part{{Text: p.System}}}
	}
	for _, pt := range p.Parts {
		if pt.Image != nil {
			req.Contents[0].Parts = append(req.Contents[0].Parts, part{InlineData: &inlineData{
				MimeType: pt.Image.MimeType,
				Data:     base64.StdEncoding.EncodeToString(pt.Image.Data),
			}})
			continue
		}
		req.Contents[0].Parts = append(req.Contents[0].Parts, part{Text: pt.Text})
	}
	return req
}

func (a *GeminiAdvisor) endpoint() string {
	return fmt.Sprintf("%s/v1/models/%s:generateContent", a.baseURL, a.model)
}

func (a *GeminiAdvisor) GetAdvice(ctx context.Context, p advisor.Prompt) (string, error) {
	payload, err := json.Marshal(buildRequest(p))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close gemini response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(errBody)}
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(body.Candidates) == 0 || len(body.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoCandidate
	}
	text := body.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", ErrNoCandidate
	}
	return text, nil
}
