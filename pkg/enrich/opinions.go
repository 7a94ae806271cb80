package enrich

import (
	"fmt"

	"github.com/elonfeng/bubbles/pkg/feed"
	"github.com/elonfeng/bubbles/pkg/source"
	"github.com/elonfeng/bubbles/pkg/textutil"
)

// Opinion is the published stance statement.
type Opinion = feed.Opinion

const maxOpinionChars = 220

// fallbackTexts are used whenever the model does not deliver three usable
// opinions with distinct tones.
var fallbackTexts = map[feed.Tone]string{
	feed.TonePositive: "Há quem defenda essa medida como necessária.",
	feed.ToneNegative: "Outros criticam e veem riscos ou consequências negativas.",
	feed.ToneNeutral:  "Também há quem prefira esperar mais informações antes de concluir.",
}

// FallbackOpinions returns the fixed positive/negative/neutral triple.
func FallbackOpinions(src source.SourceType) []Opinion {
	out := make([]Opinion, 0, len(feed.Tones))
	for i, tone := range feed.Tones {
		out = append(out, Opinion{
			ID:     fmt.Sprintf("op%d", i+1),
			Tone:   tone,
			Text:   fallbackTexts[tone],
			Source: string(src),
		})
	}
	return out
}

// validateOpinions keeps well-formed entries and accepts them only when
// exactly three remain, one per tone. ok is false when the fallback was used.
func validateOpinions(raw any, src source.SourceType) (ops []Opinion, ok bool) {
	entries, _ := raw.([]any)

	seen := make(map[feed.Tone]bool, len(feed.Tones))
	for _, e := range entries {
		obj, isObj := e.(map[string]any)
		if !isObj {
			continue
		}

		tone := feed.Tone(stringField(obj, "tone"))
		if !tone.Valid() {
			continue
		}
		text := textutil.Truncate(textutil.SafeText(stringField(obj, "text")), maxOpinionChars)
		if text == "" {
			continue
		}

		id := stringField(obj, "id")
		if id == "" {
			id = fmt.Sprintf("op%d", len(ops)+1)
		}
		seen[tone] = true
		ops = append(ops, Opinion{
			ID:     id,
			Tone:   tone,
			Text:   text,
			Source: string(src),
		})
	}

	if len(ops) != len(feed.Tones) || len(seen) != len(feed.Tones) {
		return FallbackOpinions(src), false
	}
	return ops, true
}

// stringField returns obj[key] when it is a string, "" otherwise.
func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
