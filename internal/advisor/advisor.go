package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/skintell/internal/capture"
)

// FallbackAdvice is shown in place of an answer whenever the provider cannot
// be reached or returns something unusable.
const FallbackAdvice = "I apologize, but I'm having trouble connecting right now. " +
	"Please try again in a moment. In the meantime, I recommend maintaining a " +
	"consistent skincare routine and staying hydrated!"

var (
	// ErrUnavailable is the single error callers see for any provider failure:
	// transport errors, non-2xx statuses and malformed envelopes alike.
	ErrUnavailable = errors.New("ai unavailable")
	ErrNoText      = errors.New("prompt has no text part")
)

// Part is one content block of a prompt: either text or an inline image.
type Part struct {
	Text  string
	Image *capture.Image
}

type GenerationConfig struct {
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
}

// Prompt is the provider-agnostic request payload.
type Prompt struct {
	System string
	Parts  []Part
	Config GenerationConfig
}

// UserText returns the text parts joined by newlines.
func (p Prompt) UserText() string {
	texts := make([]string, 0, len(p.Parts))
	for _, part := range p.Parts {
		if part.Image == nil && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// FirstImage returns the first inline image, or nil.
func (p Prompt) FirstImage() *capture.Image {
	for _, part := range p.Parts {
		if part.Image != nil {
			return part.Image
		}
	}
	return nil
}

func (p Prompt) hasText() bool {
	for _, part := range p.Parts {
		if part.Image == nil && strings.TrimSpace(part.Text) != "" {
			return true
		}
	}
	return false
}

// Provider is implemented by each generative-AI backend. GetAdvice returns the
// first candidate's raw text.
type Provider interface {
	GetAdvice(ctx context.Context, p Prompt) (string, error)
}

// Client wraps a Provider with validation, cleanup and error folding. It makes
// exactly one provider call per Advise.
type Client struct {
	provider Provider
	logger   *slog.Logger
}

func NewClient(provider Provider, logger *slog.Logger) *Client {
	return &Client{provider: provider, logger: logger}
}

func (c *Client) Advise(ctx context.Context, p Prompt) (string, error) {
	if !p.hasText() {
		return "", ErrNoText
	}

	start := time.Now()
	raw, err := c.provider.GetAdvice(ctx, p)
	if err != nil {
		c.logger.Error("advisor request failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	text := Cleanup(raw)
	if text == "" {
		c.logger.Error("advisor returned empty text", "duration_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("%w: empty candidate text", ErrUnavailable)
	}
	c.logger.Info("advisor request complete", "chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// Cleanup strips the literal emphasis markers models like to emit and trims
// surrounding whitespace.
func Cleanup(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "*", ""))
}
