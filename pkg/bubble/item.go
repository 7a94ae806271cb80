package bubble

import (
	"time"

	"github.com/elonfeng/bubbles/pkg/feed"
	"github.com/elonfeng/bubbles/pkg/source"
)

// Item is one candidate bubble built from a collected thread. Enrichment
// mutates it in place once it becomes a cluster representative.
type Item struct {
	ID              string
	ThreadID        string
	Title           string
	SourceTitle     string
	Source          source.SourceType
	Community       string
	Permalink       string
	CreatedAt       string
	RawScore        float64
	RelevanceScore  float64
	SuggestedRadius float64
	Rank            int
	Label           string
	Context         string
	Opinions        []feed.Opinion
	Image           string
}

// NewItem builds an item from a thread and scores it against now.
func NewItem(t source.Thread, src source.SourceType, now time.Time) *Item {
	return &Item{
		ID:        string(src) + "_" + t.ID,
		ThreadID:  t.ID,
		Title:     t.Title,
		Source:    src,
		Community: t.Community,
		Permalink: t.Permalink,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
		RawScore:  Score(t.Upvotes, t.Comments, t.CreatedAt, now),
		Image:     t.ImageURL,
	}
}

func (it *Item) Raw() float64           { return it.RawScore }
func (it *Item) SetRelevance(v float64) { it.RelevanceScore = v }

// FeedItem converts the item into its published form.
func (it *Item) FeedItem() feed.Item {
	var img *string
	if it.Image != "" {
		s := it.Image
		img = &s
	}
	opinions := it.Opinions
	if opinions == nil {
		opinions = []feed.Opinion{}
	}
	return feed.Item{
		ID:              it.ID,
		Rank:            it.Rank,
		Title:           it.Title,
		SourceTitle:     it.SourceTitle,
		Label:           it.Label,
		Context:         it.Context,
		Source:          string(it.Source),
		Subreddit:       it.Community,
		Permalink:       it.Permalink,
		CreatedAt:       it.CreatedAt,
		RawScore:        it.RawScore,
		RelevanceScore:  it.RelevanceScore,
		SuggestedRadius: it.SuggestedRadius,
		ImageURL:        img,
		Opinions:        opinions,
	}
}
