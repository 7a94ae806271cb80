package source

import (
	"context"
	"time"
)

// SourceType identifies which platform a thread came from.
type SourceType string

const (
	SourceReddit SourceType = "reddit"
)

// Thread is a hot discussion thread as listed by a collector.
type Thread struct {
	ID        string
	Community string
	Title     string
	Upvotes   int
	Comments  int
	CreatedAt time.Time
	Permalink string
	ImageURL  string
}

// Comment is one candidate piece of supporting discussion text.
type Comment struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// Collector is the read-only view of the discussion platform used by the
// pipeline. Implementations pace their own calls.
type Collector interface {
	Name() SourceType
	ListHot(ctx context.Context, community string, limit int) ([]Thread, error)
	TopComments(ctx context.Context, threadID, community string, limit int) ([]Comment, error)
}
