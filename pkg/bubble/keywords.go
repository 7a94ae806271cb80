package bubble

import (
	"regexp"
	"sort"
	"strings"

	"github.com/elonfeng/bubbles/pkg/textutil"
)

const maxKeyKeywords = 10

var wordPattern = regexp.MustCompile(`\p{L}{4,}`)

// stopwords are English and Portuguese filler words common in news titles.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true, "into": true, "over": true, "after": true,
	"says": true, "said": true, "saying": true, "tell": true, "tells": true,
	"meeting": true, "meetings": true,
	"sobre": true, "entre": true, "para": true, "como": true, "quando": true,
	"onde": true, "isso": true, "essa": true, "este": true,
	"diz": true, "afirma": true, "declara": true, "anuncia": true, "fala": true,
	"contra": true, "após": true, "antes": true, "durante": true,
}

// Keywords extracts the distinct words of four or more letters from a title,
// lower-cased, stopwords removed, in order of first appearance.
func Keywords(title string) []string {
	words := wordPattern.FindAllString(textutil.Lower(title), -1)

	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// ClusterKey is the sorted set of a title's first keywords joined by "|".
func ClusterKey(title string) string {
	kws := Keywords(title)
	if len(kws) > maxKeyKeywords {
		kws = kws[:maxKeyKeywords]
	}
	sorted := append([]string(nil), kws...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}
