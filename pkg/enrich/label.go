package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/elonfeng/bubbles/pkg/feed"
	"github.com/elonfeng/bubbles/pkg/llm"
	"github.com/elonfeng/bubbles/pkg/textutil"
)

const labelMaxTokens = 200

const labelSystemPrompt = `You write explanatory context for an app that helps ordinary people understand topics under public debate.

The tone must be clear, accessible and informative, without headline language and without assuming prior knowledge.`

const labelUserPrompt = `From the title below, produce TWO things in %[1]s using EXACTLY this format:

LABEL:
<short text>

CONTEXT:
<explanatory paragraph>

Rules for the CONTEXT:
- Explain what is happening clearly and accessibly, in at most 3 sentences.
- No headline tone, neutral and factual.
- When a term is essential, add a brief explanation in parentheses (3 to 6 words), e.g. "Federal Reserve (US central bank)".
- Do not explain widely known terms.
- Avoid explanations that introduce social, moral or political causality.

Original title: "%[2]s"
Community: %[3]s`

// Labeler runs the lightweight label and context pass over an existing feed.
type Labeler struct {
	llm      llm.Completer
	language string
	logger   *zerolog.Logger
}

// NewLabeler creates a labeler writing in language.
func NewLabeler(c llm.Completer, language string, logger *zerolog.Logger) *Labeler {
	if language == "" {
		language = DefaultOptions().Language
	}
	return &Labeler{llm: c, language: language, logger: logger}
}

// Label asks for the label and context of one title.
func (l *Labeler) Label(ctx context.Context, title, community string) (label, summary string, err error) {
	raw, err := l.llm.Complete(ctx, llm.Request{
		System:      labelSystemPrompt,
		User:        fmt.Sprintf(labelUserPrompt, l.language, title, community),
		Temperature: 0.1,
		MaxTokens:   labelMaxTokens,
	})
	if err != nil {
		return "", "", fmt.Errorf("complete: %w", err)
	}
	label, summary = ParseLabelContext(raw)
	return label, summary, nil
}

// LabelDocument fills label and context for every item, keeping the original
// title as sourceTitle. Items whose call fails get empty fields.
func (l *Labeler) LabelDocument(ctx context.Context, doc *feed.Document) *feed.Document {
	items := make([]feed.Item, len(doc.Items))
	for i, it := range doc.Items {
		community := it.Subreddit
		if community == "" {
			community = "reddit"
		}
		l.logger.Info().
			Int("item", i+1).
			Int("total", len(doc.Items)).
			Str("title", textutil.Truncate(it.Title, 60)).
			Msg("labeling")

		label, summary, err := l.Label(ctx, it.Title, community)
		if err != nil {
			l.logger.Warn().Err(err).Str("bubble", it.ID).Msg("label failed")
			label, summary = "", ""
		}

		it.SourceTitle = it.Title
		it.Label = label
		it.Context = summary
		items[i] = it
	}
	return &feed.Document{GeneratedAt: doc.GeneratedAt, Count: len(items), Items: items}
}

type labelSection int

const (
	sectionNone labelSection = iota
	sectionLabel
	sectionContext
)

// ParseLabelContext reads "LABEL:" and "CONTEXT:" blocks (also "CONTEXTO:").
// Lines after a header are joined with spaces. Text on the header line itself
// is ignored.
func ParseLabelContext(text string) (label, summary string) {
	var current labelSection
	var buf []string

	flush := func() {
		joined := strings.TrimSpace(strings.Join(buf, " "))
		switch current {
		case sectionLabel:
			label = joined
		case sectionContext:
			summary = joined
		}
		buf = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "LABEL:"):
			flush()
			current = sectionLabel
		case strings.HasPrefix(upper, "CONTEXT:"), strings.HasPrefix(upper, "CONTEXTO:"):
			flush()
			current = sectionContext
		default:
			buf = append(buf, line)
		}
	}
	flush()
	return label, summary
}
