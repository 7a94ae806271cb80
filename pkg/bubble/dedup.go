package bubble

import (
	"strings"

	"github.com/elonfeng/bubbles/pkg/textutil"
)

// Leading articles ignored when comparing titles.
var leadingArticles = []string{"the ", "a ", "an "}

// titleKey normalizes a title for duplicate detection.
func titleKey(title string) string {
	k := textutil.NormKey(title)
	for _, a := range leadingArticles {
		if rest, ok := strings.CutPrefix(k, a); ok && rest != "" {
			return rest
		}
	}
	return k
}

// Dedupe drops items whose permalink or normalized title was already seen.
// The first occurrence wins and order is preserved. Empty keys never block.
func Dedupe(items []*Item) []*Item {
	seenLink := make(map[string]bool, len(items))
	seenTitle := make(map[string]bool, len(items))

	out := make([]*Item, 0, len(items))
	for _, it := range items {
		link := textutil.SafeText(it.Permalink)
		title := titleKey(it.Title)

		if link != "" && seenLink[link] {
			continue
		}
		if title != "" && seenTitle[title] {
			continue
		}

		if link != "" {
			seenLink[link] = true
		}
		if title != "" {
			seenTitle[title] = true
		}
		out = append(out, it)
	}
	return out
}
