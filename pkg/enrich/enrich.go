// Package enrich asks a language model for the title, label, context and
// opinions of a bubble and repairs whatever comes back.
package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/elonfeng/bubbles/pkg/llm"
	"github.com/elonfeng/bubbles/pkg/source"
	"github.com/elonfeng/bubbles/pkg/textutil"
)

// ErrEmptyResponse is returned when the model answers with nothing.
var ErrEmptyResponse = errors.New("empty model response")

// Field caps in runes.
const (
	maxTitleChars   = 160
	maxLabelChars   = 60
	maxContextChars = 700
)

// Options tunes the enrichment call.
type Options struct {
	Temperature        float64
	MaxTokens          int
	PromptCommentLines int
	Language           string
}

// DefaultOptions returns the stock enrichment settings.
func DefaultOptions() Options {
	return Options{
		Temperature:        0.1,
		MaxTokens:          550,
		PromptCommentLines: 40,
		Language:           "Brazilian Portuguese",
	}
}

// Input is what the model sees about one bubble.
type Input struct {
	Title     string
	Community string
	Source    source.SourceType
	Comments  []source.Comment
}

// Result is the sanitized model answer. Opinions always hold three entries.
type Result struct {
	Title            string
	Label            string
	Context          string
	Opinions         []Opinion
	FallbackOpinions bool
}

// Outcome is the result of enriching one bubble. A non-nil Err means the
// bubble is degraded and Result must not be used.
type Outcome struct {
	Result Result
	Err    error
}

// Enricher runs one model call per bubble.
type Enricher struct {
	llm    llm.Completer
	opts   Options
	logger *zerolog.Logger
}

// New creates an enricher. Zero option fields take their defaults.
func New(c llm.Completer, opts Options, logger *zerolog.Logger) *Enricher {
	def := DefaultOptions()
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = def.MaxTokens
	}
	if opts.PromptCommentLines <= 0 {
		opts.PromptCommentLines = def.PromptCommentLines
	}
	if opts.Language == "" {
		opts.Language = def.Language
	}
	if opts.Temperature < 0 {
		opts.Temperature = def.Temperature
	}
	return &Enricher{llm: c, opts: opts, logger: logger}
}

// Enrich never fails outright: errors are carried in the Outcome.
func (e *Enricher) Enrich(ctx context.Context, in Input) Outcome {
	res, err := e.enrich(ctx, in)
	if err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Result: res}
}

func (e *Enricher) enrich(ctx context.Context, in Input) (Result, error) {
	raw, err := e.llm.Complete(ctx, llm.Request{
		System:      systemPrompt(e.opts.Language),
		User:        userPrompt(in, e.opts.Language, e.opts.PromptCommentLines),
		Temperature: e.opts.Temperature,
		MaxTokens:   e.opts.MaxTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("complete: %w", err)
	}
	if textutil.SafeText(raw) == "" {
		return Result{}, ErrEmptyResponse
	}

	obj, err := parseResponse(raw)
	if err != nil {
		e.logger.Debug().Str("raw", textutil.Truncate(raw, 500)).Msg("unparseable model answer")
		return Result{}, err
	}

	ops, ok := validateOpinions(obj["opinions"], in.Source)
	if !ok {
		e.logger.Debug().Str("title", in.Title).Msg("model opinions rejected, using fallback")
	}

	return Result{
		Title:            clean(obj, "title", maxTitleChars),
		Label:            clean(obj, "label", maxLabelChars),
		Context:          clean(obj, "context", maxContextChars),
		Opinions:         ops,
		FallbackOpinions: !ok,
	}, nil
}

// clean collapses whitespace and truncates a string field. Missing or
// non-string fields give "".
func clean(obj map[string]any, key string, limit int) string {
	return textutil.Truncate(textutil.SafeText(stringField(obj, key)), limit)
}
