// Package relay speaks the one-shot chat relay protocol: a POST of
// {message, imageContext?} answered by {success, response?, fallbackResponse?, error?}.
// The web package serves it; RelayAdvisor consumes another instance of it.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/skintell/internal/advisor"
)

var ErrRelayFailed = errors.New("relay reported failure")

type Request struct {
	Message      string `json:"message"`
	ImageContext string `json:"imageContext,omitempty"`
}

type Response struct {
	Success          bool   `json:"success"`
	Response         string `json:"response,omitempty"`
	FallbackResponse string `json:"fallbackResponse,omitempty"`
	Error            string `json:"error,omitempty"`
}

// RelayAdvisor forwards prompts to a relay endpoint. The relay owns the
// system instruction and generation settings, so only the user text and the
// first image travel.
type RelayAdvisor struct {
	url    string
	client *http.Client
}

func NewRelayAdvisor(url string) *RelayAdvisor {
	return &RelayAdvisor{url: url, client: &http.Client{}}
}

func (a *RelayAdvisor) GetAdvice(ctx context.Context, p advisor.Prompt) (string, error) {
	// The relay adds its own image lead line.
	body := Request{Message: strings.TrimPrefix(p.UserText(), advisor.ImageContextLead+"\n")}
	if img := p.FirstImage(); img != nil {
		body.ImageContext = img.DataURI()
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call relay: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close relay response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read relay response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("relay returned status %d with undecodable body: %w", resp.StatusCode, err)
	}
	if !out.Success || out.Response == "" {
		return "", fmt.Errorf("%w: status %d: %s", ErrRelayFailed, resp.StatusCode, out.Error)
	}
	return out.Response, nil
}
