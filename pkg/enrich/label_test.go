package enrich

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/bubbles/pkg/feed"
)

func TestParseLabelContext(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantLabel   string
		wantContext string
	}{
		{
			name:        "english headers",
			input:       "LABEL:\nVotação no Senado\n\nCONTEXT:\nO Senado votou.\nA lei muda regras.",
			wantLabel:   "Votação no Senado",
			wantContext: "O Senado votou. A lei muda regras.",
		},
		{
			name:        "portuguese context header",
			input:       "label:\nTarifas\nCONTEXTO:\nNovas tarifas.",
			wantLabel:   "Tarifas",
			wantContext: "Novas tarifas.",
		},
		{
			name:        "context first",
			input:       "CONTEXT:\nAlgo aconteceu.\nLABEL:\nRótulo",
			wantLabel:   "Rótulo",
			wantContext: "Algo aconteceu.",
		},
		{
			name:  "no headers",
			input: "just some text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, summary := ParseLabelContext(tt.input)
			assert.Equal(t, tt.wantLabel, label)
			assert.Equal(t, tt.wantContext, summary)
		})
	}
}

func TestLabelDocument(t *testing.T) {
	logger := zerolog.New(io.Discard)
	fc := &fakeCompleter{answer: "LABEL:\nRótulo\nCONTEXT:\nContexto."}
	l := NewLabeler(fc, "", &logger)

	doc := &feed.Document{GeneratedAt: "2026-10-19T00:00:00Z", Count: 1, Items: []feed.Item{
		{ID: "reddit_a", Title: "Original title", Subreddit: "science"},
	}}

	out := l.LabelDocument(context.Background(), doc)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Rótulo", out.Items[0].Label)
	assert.Equal(t, "Contexto.", out.Items[0].Context)
	assert.Equal(t, "Original title", out.Items[0].SourceTitle)
	assert.Equal(t, doc.GeneratedAt, out.GeneratedAt)
	assert.Equal(t, 200, fc.got[0].MaxTokens)
	assert.Contains(t, fc.got[0].User, "Community: science")
	assert.Empty(t, doc.Items[0].Label, "input document is left untouched")

	failing := NewLabeler(&fakeCompleter{err: errors.New("boom")}, "", &logger)
	out = failing.LabelDocument(context.Background(), doc)
	assert.Empty(t, out.Items[0].Label)
	assert.Equal(t, "Original title", out.Items[0].SourceTitle)
}
