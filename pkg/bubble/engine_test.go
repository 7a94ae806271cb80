package bubble

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/bubbles/pkg/enrich"
	"github.com/elonfeng/bubbles/pkg/feed"
	"github.com/elonfeng/bubbles/pkg/source"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeEnricher struct {
	inputs []enrich.Input
}

func (f *fakeEnricher) Enrich(_ context.Context, in enrich.Input) enrich.Outcome {
	f.inputs = append(f.inputs, in)
	if strings.Contains(in.Title, "Volcano") {
		return enrich.Outcome{Err: errors.New("model unavailable")}
	}
	return enrich.Outcome{Result: enrich.Result{
		Title:   "Título: " + in.Title,
		Label:   "Rótulo",
		Context: "Contexto.",
		Opinions: []enrich.Opinion{
			{ID: "op1", Tone: feed.TonePositive, Text: "sim", Source: string(in.Source)},
			{ID: "op2", Tone: feed.ToneNegative, Text: "não", Source: string(in.Source)},
			{ID: "op3", Tone: feed.ToneNeutral, Text: "talvez", Source: string(in.Source)},
		},
	}}
}

func thread(id, community, title string, up, comments int, age time.Duration) source.Thread {
	return source.Thread{
		ID:        id,
		Community: community,
		Title:     title,
		Upvotes:   up,
		Comments:  comments,
		CreatedAt: testNow.Add(-age),
		Permalink: "https://www.reddit.com/r/" + community + "/comments/" + id + "/",
	}
}

func newTestCollector() *fakeCollector {
	volcano := thread("w3", "worldnews", "Volcano erupts in Iceland", 1200, 150, time.Hour)
	volcano.ImageURL = "https://i.redd.it/volcano.jpg"

	return &fakeCollector{
		hot: map[string][]source.Thread{
			"worldnews": {
				thread("w1", "worldnews", "Senate passes budget bill", 5000, 800, 2*time.Hour),
				thread("w2", "worldnews", "Budget bill clears Senate floor", 800, 300, 3*time.Hour),
				volcano,
				thread("w4", "worldnews", "Low engagement post", 10, 5, time.Hour),
			},
			"science": {
				thread("s1", "science", "Senate passes budget bill", 300, 100, 10*time.Hour),
				thread("s2", "science", "New exoplanet discovered", 400, 120, 5*time.Hour),
			},
		},
		hotErr: map[string]error{"broken": errors.New("status 503")},
		comments: map[string][]source.Comment{
			"w1": {{ID: "c1", Text: "Comment on the main post", Score: 40}},
			"w2": {{ID: "c2", Text: "Comment on the follow-up post", Score: 90}},
		},
	}
}

func newTestEngine(c *fakeCollector, e Enricher, topN int) *Engine {
	opts := DefaultOptions()
	opts.Communities = []string{"worldnews", "broken", "science"}
	opts.TopN = topN

	eng := NewEngine(c, source.NewFilter(300, 100, 30), e, opts, discardLogger())
	eng.now = func() time.Time { return testNow }
	return eng
}

func TestEngineRun(t *testing.T) {
	fe := &fakeEnricher{}
	doc, err := newTestEngine(newTestCollector(), fe, 20).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2026-10-19T12:00:00Z", doc.GeneratedAt)
	require.Equal(t, 3, doc.Count)
	require.Len(t, doc.Items, 3)

	top := doc.Items[0]
	assert.Equal(t, "reddit_w1", top.ID)
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, "Título: Senate passes budget bill", top.Title)
	assert.Equal(t, "Rótulo", top.Label)
	assert.Equal(t, 1.0, top.RelevanceScore)
	assert.Equal(t, 96.0, top.SuggestedRadius)
	assert.Equal(t, "worldnews", top.Subreddit)
	assert.Equal(t, "2026-10-19T10:00:00Z", top.CreatedAt)
	assert.Nil(t, top.ImageURL)
	assert.Len(t, top.Opinions, 3)

	volcano := doc.Items[1]
	assert.Equal(t, "reddit_w3", volcano.ID)
	assert.Equal(t, 2, volcano.Rank)
	assert.Equal(t, "Volcano erupts in Iceland", volcano.Title, "degraded bubbles keep their title")
	assert.Empty(t, volcano.Label)
	assert.Empty(t, volcano.Context)
	assert.Equal(t, enrich.FallbackOpinions(source.SourceReddit), volcano.Opinions)
	require.NotNil(t, volcano.ImageURL)
	assert.Equal(t, "https://i.redd.it/volcano.jpg", *volcano.ImageURL)

	last := doc.Items[2]
	assert.Equal(t, "reddit_s2", last.ID)
	assert.Equal(t, 3, last.Rank)
	assert.Equal(t, 0.0, last.RelevanceScore)
	assert.Equal(t, 36.0, last.SuggestedRadius)

	require.Len(t, fe.inputs, 3)
	assert.Equal(t, "Senate passes budget bill", fe.inputs[0].Title)
	assert.Equal(t, []string{"c2", "c1"}, commentIDs(fe.inputs[0].Comments), "comments merged across the cluster")
	assert.Empty(t, fe.inputs[2].Comments)
}

func TestEngineRunTopN(t *testing.T) {
	doc, err := newTestEngine(newTestCollector(), &fakeEnricher{}, 2).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Count)
	assert.Equal(t, []int{1, 2}, []int{doc.Items[0].Rank, doc.Items[1].Rank})
}

func TestEngineRunWithoutEnricher(t *testing.T) {
	doc, err := newTestEngine(newTestCollector(), nil, 20).Run(context.Background())
	require.NoError(t, err)
	for _, it := range doc.Items {
		assert.Len(t, it.Opinions, 3)
		assert.Empty(t, it.Label)
	}
}

func TestEngineRunNoItems(t *testing.T) {
	c := &fakeCollector{hotErr: map[string]error{
		"worldnews": errors.New("down"), "science": errors.New("down"), "broken": errors.New("down"),
	}}
	_, err := newTestEngine(c, &fakeEnricher{}, 20).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestEngineRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &fakeCollector{hotErr: map[string]error{"worldnews": context.Canceled}}
	_, err := newTestEngine(c, &fakeEnricher{}, 20).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineSnapshot(t *testing.T) {
	fe := &fakeEnricher{}
	doc, err := newTestEngine(newTestCollector(), fe, 20).Snapshot(context.Background(), 3)
	require.NoError(t, err)

	require.Equal(t, 3, doc.Count)
	assert.Equal(t, []string{"reddit_w1", "reddit_w3", "reddit_w2"},
		[]string{doc.Items[0].ID, doc.Items[1].ID, doc.Items[2].ID})
	assert.Equal(t, 96.0, doc.Items[0].SuggestedRadius)
	assert.Empty(t, fe.inputs, "snapshot never enriches")
}
