// Package llm provides the generative-text clients a synthesis request is sent to.
//
// Supported providers:
//   - gemini (default): Google Gemini generateContent in JSON mode. Requires an API key.
//   - ollama: a local Ollama instance's /api/generate with format=json.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/atlas/internal/apperr"
)

// ErrorPrefix marks a reply that is a service-level failure rather than content.
const ErrorPrefix = "Error:"

// ErrBlocked is returned when the service produced no content.
var ErrBlocked = errors.New("response was empty or blocked")

// Generator returns the service's reply to a prompt. Replies are expected to
// be a JSON object.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Provider() string
}

// Config holds provider settings.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// placeholderKey is the value shipped in example configs.
const placeholderKey = "YOUR_API_KEY"

// New creates the Generator for cfg.Provider. Missing or placeholder
// credentials are configuration errors.
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "gemini":
		key := strings.TrimSpace(cfg.APIKey)
		if key == "" || strings.Contains(key, placeholderKey) {
			return nil, fmt.Errorf("%w: gemini API key is not configured", apperr.ErrConfig)
		}
		return newGemini(cfg), nil
	case "ollama":
		return newOllama(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q (supported: gemini, ollama)", apperr.ErrConfig, cfg.Provider)
	}
}

// IsErrorReply reports whether text follows the "Error:" failure convention.
func IsErrorReply(text string) bool {
	return strings.HasPrefix(text, ErrorPrefix)
}

func timeoutOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
