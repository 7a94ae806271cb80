package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/bubbles/pkg/feed"
)

func testDoc() *feed.Document {
	items := make([]feed.Item, 7)
	for i := range items {
		items[i] = feed.Item{
			ID:        "reddit_" + string(rune('a'+i)),
			Rank:      i + 1,
			Title:     "Bubble " + string(rune('A'+i)),
			Label:     "label",
			Context:   "context",
			Subreddit: "worldnews",
			Permalink: "https://www.reddit.com/r/worldnews/comments/" + string(rune('a'+i)),
		}
	}
	return feed.NewDocument(time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC), items)
}

type captured struct {
	header http.Header
	body   []byte
}

func captureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.header = r.Header.Clone()
		c.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestNewNotification(t *testing.T) {
	n := NewNotification("feed-1", testDoc(), 3)
	assert.Equal(t, "feed-1", n.FeedID)
	assert.Equal(t, 7, n.Total)
	assert.Equal(t, "7 bubbles in the new feed", n.Title)
	require.Len(t, n.Bubbles, 3)
	assert.Equal(t, 1, n.Bubbles[0].Rank)

	assert.Len(t, NewNotification("x", testDoc(), 0).Bubbles, defaultTop)
}

func TestWebhookSignsBody(t *testing.T) {
	srv, c := captureServer(t, http.StatusAccepted)

	n := NewNotification("feed-1", testDoc(), 2)
	require.NoError(t, NewWebhook(srv.URL, "s3cret").Send(context.Background(), n))

	assert.Equal(t, "sha256="+Sign("s3cret", c.body), c.header.Get("X-Signature-256"))
	assert.Equal(t, "application/json", c.header.Get("Content-Type"))

	var got Notification
	require.NoError(t, json.Unmarshal(c.body, &got))
	assert.Equal(t, *n, got)
}

func TestWebhookWithoutSecret(t *testing.T) {
	srv, c := captureServer(t, http.StatusOK)
	require.NoError(t, NewWebhook(srv.URL, "").Send(context.Background(), NewNotification("f", testDoc(), 1)))
	assert.Empty(t, c.header.Get("X-Signature-256"))
}

func TestSlackPayload(t *testing.T) {
	srv, c := captureServer(t, http.StatusOK)
	require.NoError(t, NewSlack(srv.URL).Send(context.Background(), NewNotification("f", testDoc(), 2)))

	var payload struct {
		Blocks []map[string]any `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(c.body, &payload))
	assert.Len(t, payload.Blocks, 4, "header, two bubbles, footer")
	assert.Equal(t, "header", payload.Blocks[0]["type"])
}

func TestDiscordPayload(t *testing.T) {
	srv, c := captureServer(t, http.StatusNoContent)
	require.NoError(t, NewDiscord(srv.URL).Send(context.Background(), NewNotification("f", testDoc(), 2)))

	var payload struct {
		Embeds []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(c.body, &payload))
	require.Len(t, payload.Embeds, 1)
	assert.Contains(t, payload.Embeds[0].Description, "[Bubble A]")
	assert.Contains(t, payload.Embeds[0].Description, "[Bubble B]")
	assert.NotContains(t, payload.Embeds[0].Description, "[Bubble C]")
}

func TestNotifierStatusError(t *testing.T) {
	srv, _ := captureServer(t, http.StatusInternalServerError)
	n := NewNotification("f", testDoc(), 1)

	for _, notifier := range []Notifier{NewSlack(srv.URL), NewDiscord(srv.URL), NewWebhook(srv.URL, "")} {
		t.Run(notifier.Name(), func(t *testing.T) {
			err := notifier.Send(context.Background(), n)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "status 500")
		})
	}
}

type stubNotifier struct {
	name string
	err  error
	sent int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Send(context.Context, *Notification) error {
	s.sent++
	return s.err
}

func TestManagerBroadcast(t *testing.T) {
	ok := &stubNotifier{name: "ok"}
	bad := &stubNotifier{name: "bad", err: errors.New("boom")}
	m := NewManager([]Notifier{bad, ok})

	assert.True(t, m.HasNotifiers())
	err := m.Broadcast(context.Background(), &Notification{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Equal(t, 1, ok.sent, "later notifiers still run")

	assert.False(t, NewManager(nil).HasNotifiers())
}
