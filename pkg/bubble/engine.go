// Package bubble turns hot discussion threads into a ranked list of topic
// bubbles: score, dedupe, cluster, pick representatives, gather comments and
// hand each cluster to the enricher.
package bubble

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/elonfeng/bubbles/internal/metrics"
	"github.com/elonfeng/bubbles/pkg/enrich"
	"github.com/elonfeng/bubbles/pkg/feed"
	"github.com/elonfeng/bubbles/pkg/source"
	"github.com/elonfeng/bubbles/pkg/textutil"
)

var (
	// ErrNoItems is returned when no thread survives filtering and dedupe.
	ErrNoItems = errors.New("no relevant threads found")
	// ErrNoClusters is returned when clustering produced nothing.
	ErrNoClusters = errors.New("no clusters formed")

	errNoEnricher = errors.New("enrichment disabled")
)

// Options tunes one pipeline run.
type Options struct {
	Communities      []string
	HotLimit         int
	TopN             int
	MinOverlap       int
	MaxPostsToMerge  int
	MaxTotalComments int
	CommentsPerPost  int
	MinRadius        float64
	MaxRadius        float64
}

// DefaultOptions returns the stock pipeline settings.
func DefaultOptions() Options {
	return Options{
		Communities:      []string{"worldnews", "technology", "science", "economics", "geopolitics"},
		HotLimit:         50,
		TopN:             20,
		MinOverlap:       1,
		MaxPostsToMerge:  4,
		MaxTotalComments: 60,
		CommentsPerPost:  40,
		MinRadius:        36,
		MaxRadius:        96,
	}
}

// Enricher produces the label, context and opinions of one bubble.
type Enricher interface {
	Enrich(ctx context.Context, in enrich.Input) enrich.Outcome
}

// Engine runs the bubble pipeline against a collector.
type Engine struct {
	collector  source.Collector
	filter     *source.Filter
	enricher   Enricher
	clusterer  *Clusterer
	aggregator *Aggregator
	opts       Options
	logger     *zerolog.Logger
	now        func() time.Time
}

// NewEngine creates an engine. The enricher may be nil for runs that only
// rank threads.
func NewEngine(collector source.Collector, filter *source.Filter, enricher Enricher, opts Options, logger *zerolog.Logger) *Engine {
	def := DefaultOptions()
	if opts.HotLimit <= 0 {
		opts.HotLimit = def.HotLimit
	}
	if opts.TopN <= 0 {
		opts.TopN = def.TopN
	}
	if opts.MaxRadius <= 0 {
		opts.MinRadius, opts.MaxRadius = def.MinRadius, def.MaxRadius
	}
	if filter == nil {
		filter = source.NewFilter(0, 0, 0)
	}
	return &Engine{
		collector:  collector,
		filter:     filter,
		enricher:   enricher,
		clusterer:  NewClusterer(opts.MinOverlap),
		aggregator: NewAggregator(collector, opts.MaxPostsToMerge, opts.MaxTotalComments, opts.CommentsPerPost, logger),
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes a full batch and returns the enriched feed document.
func (e *Engine) Run(ctx context.Context) (*feed.Document, error) {
	items, err := e.collect(ctx)
	if err != nil {
		return nil, err
	}

	items = Dedupe(items)
	metrics.ItemsAfterDedupe.Set(float64(len(items)))
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	Normalize(items)
	sortByRelevance(items)

	e.logger.Info().Int("items", len(items)).Msg("clustering")
	clusters := e.clusterer.Cluster(items)
	metrics.Clusters.Set(float64(len(clusters)))
	if len(clusters) == 0 {
		return nil, ErrNoClusters
	}

	Normalize(clusters)
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].RelevanceScore > clusters[j].RelevanceScore
	})
	if len(clusters) > e.opts.TopN {
		clusters = clusters[:e.opts.TopN]
	}

	reps := make([]*Item, len(clusters))
	for i, c := range clusters {
		rep := Representative(c)
		rep.RelevanceScore = c.RelevanceScore
		reps[i] = rep
	}
	stamp(reps, e.opts.MinRadius, e.opts.MaxRadius)

	e.logger.Info().Int("clusters", len(clusters)).Msg("enriching top clusters")
	for i, c := range clusters {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("enrich clusters: %w", err)
		}

		rep := reps[i]
		rep.Image = ClusterImage(c)

		e.logger.Info().
			Int("cluster", i+1).
			Int("posts", len(c.Items)).
			Str("title", textutil.Truncate(rep.Title, 80)).
			Msg("enriching cluster")

		comments := e.aggregator.Aggregate(ctx, c)
		e.apply(rep, e.enrich(ctx, rep, comments))
	}

	// Enrichment rewrites representatives in place; ranks and radii are
	// stamped again so nothing it touched can leave them stale.
	stamp(reps, e.opts.MinRadius, e.opts.MaxRadius)

	metrics.LastRunTimestamp.SetToCurrentTime()
	return e.document(reps), nil
}

// Snapshot ranks individual threads without clustering or enrichment.
func (e *Engine) Snapshot(ctx context.Context, topN int) (*feed.Document, error) {
	items, err := e.collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	Normalize(items)
	sortByRelevance(items)
	if topN <= 0 {
		topN = e.opts.TopN
	}
	if len(items) > topN {
		items = items[:topN]
	}
	stamp(items, e.opts.MinRadius, e.opts.MaxRadius)
	return e.document(items), nil
}

// collect lists every configured community and keeps the threads that pass
// the engagement floors. A failing community is skipped.
func (e *Engine) collect(ctx context.Context) ([]*Item, error) {
	now := e.now()
	var items []*Item

	for _, community := range e.opts.Communities {
		threads, err := e.collector.ListHot(ctx, community, e.opts.HotLimit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("collect: %w", ctxErr)
			}
			metrics.CommunityErrors.WithLabelValues(community).Inc()
			e.logger.Warn().Err(err).Str("community", community).Msg("community fetch failed")
			continue
		}

		kept := 0
		for _, t := range threads {
			if !e.filter.Relevant(t) {
				continue
			}
			items = append(items, NewItem(t, e.collector.Name(), now))
			kept++
		}
		metrics.ThreadsCollected.WithLabelValues(community).Add(float64(kept))
		e.logger.Info().Str("community", community).Int("threads", len(threads)).Int("kept", kept).Msg("collected")
	}
	return items, nil
}

func (e *Engine) enrich(ctx context.Context, rep *Item, comments []source.Comment) enrich.Outcome {
	if e.enricher == nil {
		return enrich.Outcome{Err: errNoEnricher}
	}
	return e.enricher.Enrich(ctx, enrich.Input{
		Title:     rep.Title,
		Community: rep.Community,
		Source:    rep.Source,
		Comments:  comments,
	})
}

// apply writes an enrichment outcome onto the representative. A degraded
// outcome keeps the original title and gets the fallback opinions.
func (e *Engine) apply(rep *Item, out enrich.Outcome) {
	if out.Err != nil {
		metrics.EnrichOutcomes.WithLabelValues(metrics.EnrichDegraded).Inc()
		e.logger.Warn().Err(out.Err).Str("bubble", rep.ID).Msg("enrichment failed")
		rep.Label = ""
		rep.Context = ""
		rep.Opinions = enrich.FallbackOpinions(rep.Source)
		return
	}

	status := metrics.EnrichOK
	if out.Result.FallbackOpinions {
		status = metrics.EnrichFallback
	}
	metrics.EnrichOutcomes.WithLabelValues(status).Inc()

	if out.Result.Title != "" {
		rep.Title = out.Result.Title
	}
	rep.Label = out.Result.Label
	rep.Context = out.Result.Context
	rep.Opinions = out.Result.Opinions
}

func (e *Engine) document(items []*Item) *feed.Document {
	out := make([]feed.Item, len(items))
	for i, it := range items {
		out[i] = it.FeedItem()
	}
	return feed.NewDocument(e.now(), out)
}

func sortByRelevance(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RelevanceScore > items[j].RelevanceScore
	})
}
