package store

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/bubbles/pkg/feed"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := zerolog.New(io.Discard)
	s, err := New(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc(at time.Time, titles ...string) *feed.Document {
	items := make([]feed.Item, len(titles))
	for i, title := range titles {
		items[i] = feed.Item{
			ID:              "reddit_" + title,
			Rank:            i + 1,
			Title:           title,
			Label:           "label " + title,
			Subreddit:       "worldnews",
			RelevanceScore:  1 - float64(i)*0.5,
			SuggestedRadius: 96,
			Opinions:        []feed.Opinion{{ID: "op1", Tone: feed.TonePositive, Text: "sim", Source: "reddit"}},
		}
	}
	return feed.NewDocument(at, items)
}

func TestSaveAndGetFeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := testDoc(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC), "alpha", "beta")
	id, err := s.SaveFeed(ctx, doc)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, err := s.GetFeed(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	_, err = s.GetFeed(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestFeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.LatestFeed(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	base := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	_, err = s.SaveFeed(ctx, testDoc(base.Add(6*time.Hour), "newer"))
	require.NoError(t, err)
	_, err = s.SaveFeed(ctx, testDoc(base, "older"))
	require.NoError(t, err)

	id, doc, err := s.LatestFeed(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "newer", doc.Items[0].Title)
}

func TestListFeeds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"one", "two", "three"} {
		_, err := s.SaveFeed(ctx, testDoc(base.Add(time.Duration(i)*24*time.Hour), title, "runner-up"))
		require.NoError(t, err)
	}
	_, err := s.SaveFeed(ctx, testDoc(base.Add(72*time.Hour)))
	require.NoError(t, err)

	all, err := s.ListFeeds(ctx, ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "", all[0].TopTitle, "empty feed has no top bubble")
	assert.Equal(t, 0, all[0].Count)
	assert.Equal(t, "three", all[1].TopTitle)
	assert.Equal(t, 2, all[1].Count)
	assert.Equal(t, base.Add(48*time.Hour), all[1].GeneratedAt)

	recent, err := s.ListFeeds(ctx, ListOpts{Since: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	limited, err := s.ListFeeds(ctx, ListOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMarkAlerted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveFeed(ctx, testDoc(time.Now(), "alpha"))
	require.NoError(t, err)
	require.NoError(t, s.MarkAlerted(ctx, id))

	records, err := s.ListFeeds(ctx, ListOpts{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Alerted)

	assert.ErrorIs(t, s.MarkAlerted(ctx, "missing"), ErrNotFound)
}

func TestSaveFeedRejectsBadTimestamp(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveFeed(context.Background(), &feed.Document{GeneratedAt: "yesterday"})
	require.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	logger := zerolog.New(io.Discard)
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := New(path, &logger)
	require.NoError(t, err)
	id, err := s.SaveFeed(context.Background(), testDoc(time.Now(), "alpha"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path, &logger)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetFeed(context.Background(), id)
	assert.NoError(t, err)
}
