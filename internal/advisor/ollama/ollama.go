package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/skintell/internal/advisor"
)

// OllamaAdvisor talks to a local Ollama server through /api/generate.
type OllamaAdvisor struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaAdvisor(host, model string) *OllamaAdvisor {
	return &OllamaAdvisor{
		host:   host,
		model:  model,
		client: &http.Client{},
	}
}

type options struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string   `json:"model"`
	System  string   `json:"system,omitempty"`
	Prompt  string   `json:"prompt"`
	Images  []string `json:"images,omitempty"`
	Stream  bool     `json:"stream"`
	Options options  `json:"options"`
}

func (a *OllamaAdvisor) buildRequest(p advisor.Prompt) generateRequest {
	req := generateRequest{
		Model:  a.model,
		System: p.System,
		Prompt: p.UserText(),
		Options: options{
			Temperature: p.Config.Temperature,
			TopK:        p.Config.TopK,
			TopP:        p.Config.TopP,
			NumPredict:  p.Config.MaxOutputTokens,
		},
	}
	for _, part := range p.Parts {
		if part.Image != nil {
			req.Images = append(req.Images, base64.StdEncoding.EncodeToString(part.Image.Data))
		}
	}
	return req
}

func (a *OllamaAdvisor) GetAdvice(ctx context.Context, p advisor.Prompt) (string, error) {
	payload, err := json.Marshal(a.buildRequest(p))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return respBody.Response, nil
}
