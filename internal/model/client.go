// Package model wraps the hosted text-generation services the assistant can
// talk to behind a single Generate call.
package model

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"digitalparbhani/backend/internal/config"
)

var (
	ErrNotConfigured = errors.New("model provider is not configured")
	ErrEmptyAnswer   = errors.New("model response answer is empty")
	ErrBlocked       = errors.New("model blocked the prompt")
)

// Client generates a free-text reply for a fully rendered prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New builds the client selected by cfg.AIProvider.
func New(cfg config.Config) (Client, error) {
	switch cfg.AIProvider {
	case config.ProviderGemini:
		client, err := NewGeminiClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOpenAI:
		return NewOpenAIResponsesClient(cfg), nil
	case config.ProviderMock:
		return MockClient{}, nil
	default:
		return nil, errors.Wrapf(ErrNotConfigured, "unknown AI_PROVIDER %q", cfg.AIProvider)
	}
}

func timeoutFromSeconds(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds) * time.Second
}

// TruncateForLog trims value and caps it at limit bytes without splitting a
// UTF-8 sequence, noting how much was dropped.
func TruncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut] + "…(+" + strconv.Itoa(len(trimmed)-cut) + " bytes)"
}
