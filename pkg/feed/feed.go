// Package feed defines the persisted bubble document and reads/writes it.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Tone is the stance of an opinion.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneNeutral  Tone = "neutral"
)

// Tones lists the fixed tone set in output order.
var Tones = []Tone{TonePositive, ToneNegative, ToneNeutral}

// Valid reports whether t is one of the three known tones.
func (t Tone) Valid() bool {
	switch t {
	case TonePositive, ToneNegative, ToneNeutral:
		return true
	}
	return false
}

// Opinion is one synthesized stance statement attached to a bubble.
type Opinion struct {
	ID     string `json:"id"`
	Tone   Tone   `json:"tone"`
	Text   string `json:"text"`
	Source string `json:"source"`
	Votes  int    `json:"votes"`
}

// Item is one ranked bubble in the published document.
type Item struct {
	ID              string    `json:"id"`
	Rank            int       `json:"rank"`
	Title           string    `json:"title"`
	SourceTitle     string    `json:"sourceTitle,omitempty"`
	Label           string    `json:"label"`
	Context         string    `json:"context"`
	Source          string    `json:"source"`
	Subreddit       string    `json:"subreddit"`
	Permalink       string    `json:"permalink"`
	CreatedAt       string    `json:"createdAt"`
	RawScore        float64   `json:"rawScore"`
	RelevanceScore  float64   `json:"relevanceScore"`
	SuggestedRadius float64   `json:"suggestedRadius"`
	ImageURL        *string   `json:"imageUrl"`
	Opinions        []Opinion `json:"opinions"`
}

// Document is the whole published feed.
type Document struct {
	GeneratedAt string `json:"generatedAt"`
	Count       int    `json:"count"`
	Items       []Item `json:"items"`
}

// NewDocument wraps items with a generation timestamp and count.
func NewDocument(generatedAt time.Time, items []Item) *Document {
	if items == nil {
		items = []Item{}
	}
	for i := range items {
		if items[i].Opinions == nil {
			items[i].Opinions = []Opinion{}
		}
	}
	return &Document{
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		Count:       len(items),
		Items:       items,
	}
}

// Encode renders the document as indented JSON without HTML escaping, so
// accented text and URLs stay readable.
func Encode(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode feed: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a document produced by Encode.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return &doc, nil
}

// WriteFile writes the document to path through a temporary file in the same
// directory, so readers never see a partial document.
func WriteFile(path string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".bubbles-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a document from disk.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed %s: %w", path, err)
	}
	return Decode(data)
}
