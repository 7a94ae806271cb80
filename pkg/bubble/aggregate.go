package bubble

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/elonfeng/bubbles/internal/metrics"
	"github.com/elonfeng/bubbles/pkg/source"
	"github.com/elonfeng/bubbles/pkg/textutil"
)

// CommentSource fetches the usable top comments of a thread.
type CommentSource interface {
	TopComments(ctx context.Context, threadID, community string, limit int) ([]source.Comment, error)
}

// Aggregator merges comments from the strongest members of a cluster.
type Aggregator struct {
	src      CommentSource
	maxPosts int
	maxTotal int
	perPost  int
	logger   *zerolog.Logger
}

// NewAggregator creates an aggregator. Non-positive caps fall back to 4 posts,
// 60 comments in total and 40 per post.
func NewAggregator(src CommentSource, maxPosts, maxTotal, perPost int, logger *zerolog.Logger) *Aggregator {
	if maxPosts <= 0 {
		maxPosts = 4
	}
	if maxTotal <= 0 {
		maxTotal = 60
	}
	if perPost <= 0 {
		perPost = 40
	}
	return &Aggregator{src: src, maxPosts: maxPosts, maxTotal: maxTotal, perPost: perPost, logger: logger}
}

// Aggregate returns at most maxTotal distinct comments, best score first.
// A post whose comments cannot be fetched contributes nothing.
func (a *Aggregator) Aggregate(ctx context.Context, c *Cluster) []source.Comment {
	posts := byRawScore(c)
	if len(posts) > a.maxPosts {
		posts = posts[:a.maxPosts]
	}

	seen := make(map[string]bool)
	var merged []source.Comment

	for _, it := range posts {
		comments, err := a.src.TopComments(ctx, it.ThreadID, it.Community, a.perPost)
		if err != nil {
			metrics.CommentFetchErrors.Inc()
			a.logger.Warn().Err(err).
				Str("thread", it.ThreadID).
				Str("community", it.Community).
				Msg("comment fetch failed")
			comments = nil
		}

		for _, cm := range comments {
			key := textutil.NormKey(cm.Text)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, cm)
		}

		if len(merged) >= a.maxTotal || ctx.Err() != nil {
			break
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > a.maxTotal {
		merged = merged[:a.maxTotal]
	}
	return merged
}
