package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hotListingJSON = `{
  "data": {
    "children": [
      {"data": {"id": "abc", "title": "  Senate   passes bill ", "score": 1200, "num_comments": 340,
                "created_utc": 1760000000, "permalink": "/r/worldnews/comments/abc/senate/",
                "url_overridden_by_dest": "https://i.redd.it/pic.jpg"}},
      {"data": {"id": "mod", "title": "Daily thread", "score": 10, "num_comments": 5,
                "created_utc": 1760000000, "permalink": "/r/worldnews/comments/mod/daily/", "stickied": true}},
      {"data": {"id": "def", "title": "Preview post", "score": 50, "num_comments": 150,
                "created_utc": 1760003600, "permalink": "/r/worldnews/comments/def/preview/",
                "url_overridden_by_dest": "https://example.com/article",
                "preview": {"images": [{"source": {"url": "https://i.redd.it/prev.png?width=10&amp;s=x"}}]}}},
      {"data": {"id": "ghi", "title": "External preview", "score": 500, "num_comments": 10,
                "created_utc": 1760003600, "permalink": "/r/worldnews/comments/ghi/ext/",
                "preview": {"images": [{"source": {"url": "https://external-preview.redd.it/x.jpg"}}]}}},
      {"data": {"id": "", "title": "no id"}}
    ]
  }
}`

const commentsJSON = `[
  {"data": {"children": [{"kind": "t3", "data": {"id": "abc", "score": 1200}}]}},
  {"data": {"children": [
    {"kind": "t1", "data": {"id": "c1", "body": "This is a reasonably long comment about the bill.", "score": 10}},
    {"kind": "t1", "data": {"id": "c2", "body": "[deleted]", "score": 500}},
    {"kind": "t1", "data": {"id": "c3", "body": "too short", "score": 300}},
    {"kind": "t1", "data": {"id": "c4", "body": "Another   comment\nthat is long enough to keep around.", "score": 90}},
    {"kind": "more", "data": {"id": "m1"}}
  ]}}
]`

func newTestReddit(t *testing.T, handler http.HandlerFunc) *Reddit {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewReddit(RedditOptions{
		BaseURL:   srv.URL,
		UserAgent: "bubbles-test/1.0",
		Timeout:   5 * time.Second,
	}, NewFilter(300, 100, 30))
}

func TestRedditListHot(t *testing.T) {
	var gotPath, gotUA string
	r := newTestReddit(t, func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path + "?" + req.URL.RawQuery
		gotUA = req.Header.Get("User-Agent")
		_, _ = w.Write([]byte(hotListingJSON))
	})

	threads, err := r.ListHot(context.Background(), "worldnews", 25)
	require.NoError(t, err)

	assert.Equal(t, "/r/worldnews/hot.json?limit=25", gotPath)
	assert.Equal(t, "bubbles-test/1.0", gotUA)

	require.Len(t, threads, 3)
	assert.Equal(t, "abc", threads[0].ID)
	assert.Equal(t, "Senate passes bill", threads[0].Title)
	assert.Equal(t, "worldnews", threads[0].Community)
	assert.Equal(t, 1200, threads[0].Upvotes)
	assert.Equal(t, 340, threads[0].Comments)
	assert.Equal(t, "https://www.reddit.com/r/worldnews/comments/abc/senate/", threads[0].Permalink)
	assert.Equal(t, time.Unix(1760000000, 0).UTC(), threads[0].CreatedAt)
	assert.Equal(t, "https://i.redd.it/pic.jpg", threads[0].ImageURL)

	assert.Equal(t, "https://i.redd.it/prev.png?width=10&s=x", threads[1].ImageURL)
	assert.Empty(t, threads[2].ImageURL, "external previews are dropped")
}

func TestRedditListHotStatusError(t *testing.T) {
	r := newTestReddit(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := r.ListHot(context.Background(), "worldnews", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestRedditTopComments(t *testing.T) {
	var gotQuery string
	r := newTestReddit(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/r/worldnews/comments/abc.json", req.URL.Path)
		gotQuery = req.URL.RawQuery
		_, _ = w.Write([]byte(commentsJSON))
	})

	comments, err := r.TopComments(context.Background(), "abc", "worldnews", 40)
	require.NoError(t, err)
	assert.Equal(t, "sort=top&limit=50", gotQuery)

	require.Len(t, comments, 2)
	assert.Equal(t, "c4", comments[0].ID, "sorted by score")
	assert.Equal(t, "Another comment that is long enough to keep around.", comments[0].Text)
	assert.Equal(t, "c1", comments[1].ID)
}

func TestRedditTopCommentsLimit(t *testing.T) {
	r := newTestReddit(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(commentsJSON))
	})

	comments, err := r.TopComments(context.Background(), "abc", "worldnews", 1)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "c4", comments[0].ID)
}

func TestRedditTopCommentsShortResponse(t *testing.T) {
	r := newTestReddit(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	comments, err := r.TopComments(context.Background(), "abc", "worldnews", 10)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestRedditOAuth(t *testing.T) {
	var authHeader string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, req *http.Request) {
		user, pass, ok := req.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})
	mux.HandleFunc("/r/science/hot.json", func(w http.ResponseWriter, req *http.Request) {
		authHeader = req.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{"children":[]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	r := NewReddit(RedditOptions{BaseURL: srv.URL, ClientID: "id", ClientSecret: "secret"}, nil)
	r.tokenURL = srv.URL + "/api/v1/access_token"

	_, err := r.ListHot(context.Background(), "science", 5)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", authHeader)
}

func TestFilter(t *testing.T) {
	f := NewFilter(300, 100, 30)

	tests := []struct {
		name   string
		thread Thread
		want   bool
	}{
		{"votes only", Thread{Upvotes: 300, Comments: 0}, true},
		{"comments only", Thread{Upvotes: 0, Comments: 100}, true},
		{"neither", Thread{Upvotes: 299, Comments: 99}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Relevant(tt.thread))
		})
	}

	assert.False(t, f.KeepComment("[removed]"))
	assert.False(t, f.KeepComment("short"))
	assert.True(t, f.KeepComment("ação é necessária para todo o país"))
}
