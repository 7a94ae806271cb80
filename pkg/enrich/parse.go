package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnparseable is returned when no strategy recovers a JSON object.
	ErrUnparseable = errors.New("no valid JSON object in model response")

	errNoBraces = errors.New("no braces found")
)

// parseStrategy tries to recover a JSON object from a model answer.
type parseStrategy struct {
	name  string
	parse func(text string) (map[string]any, error)
}

// strategies are tried in order. The first success wins.
var strategies = []parseStrategy{
	{name: "direct", parse: parseDirect},
	{name: "braces", parse: parseBraces},
	{name: "wrapped", parse: parseWrapped},
}

// parseResponse runs the strategy chain over the trimmed answer.
func parseResponse(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)

	var lastErr error
	for _, s := range strategies {
		obj, err := s.parse(text)
		if err == nil {
			return obj, nil
		}
		lastErr = fmt.Errorf("%s: %w", s.name, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrUnparseable, lastErr)
}

func decodeObject(text string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("null document")
	}
	return obj, nil
}

// parseDirect expects the whole answer to be the object.
func parseDirect(text string) (map[string]any, error) {
	return decodeObject(text)
}

// parseBraces takes everything from the first "{" to the last "}", dropping
// prose or code fences around the object.
func parseBraces(text string) (map[string]any, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errNoBraces
	}
	return decodeObject(text[start : end+1])
}

// parseWrapped handles answers that list the members without the outer
// braces.
func parseWrapped(text string) (map[string]any, error) {
	body := strings.TrimRight(strings.TrimSpace(text), ",")
	return decodeObject("{\n" + body + "\n}")
}
