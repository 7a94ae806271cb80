// Package llm wraps the chat completion providers behind a single Completer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elonfeng/bubbles/internal/metrics"
)

// ErrNoChoices is returned when a provider answers without any content.
var ErrNoChoices = errors.New("llm returned no content")

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Request is a single system + user exchange.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer returns the raw text of a model answer.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the Completer for opts.Provider.
func New(opts Options) (Completer, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	switch opts.Provider {
	case ProviderAnthropic:
		return NewAnthropic(opts), nil
	case ProviderOpenAI, "":
		return NewOpenAI(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

func observe(provider string, start time.Time) {
	metrics.LLMDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
