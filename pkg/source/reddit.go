package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/elonfeng/bubbles/pkg/textutil"
)

const (
	redditWebURL     = "https://www.reddit.com"
	redditOAuthURL   = "https://oauth.reddit.com"
	redditTokenURL   = "https://www.reddit.com/api/v1/access_token"
	redditImageHost  = "https://i.redd.it"
	defaultUserAgent = "bubbles/1.0"
)

// RedditOptions configures the Reddit collector.
type RedditOptions struct {
	// BaseURL is used for anonymous access. Defaults to https://www.reddit.com.
	BaseURL      string
	UserAgent    string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	// CommunityPacing is the minimum gap between two listing calls.
	CommunityPacing time.Duration
	// CommentPacing is the minimum gap between two comment calls.
	CommentPacing time.Duration
	// CommentFetchLimit is how many top-level comments are requested per thread
	// before filtering.
	CommentFetchLimit int
}

// Reddit reads hot threads and top comments from Reddit's JSON endpoints.
// With client credentials it authenticates against the OAuth API, otherwise it
// uses the public endpoints.
type Reddit struct {
	client         *http.Client
	opts           RedditOptions
	filter         *Filter
	listLimiter    *rate.Limiter
	commentLimiter *rate.Limiter
	tokenURL       string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewReddit creates a new Reddit collector.
func NewReddit(opts RedditOptions, filter *Filter) *Reddit {
	if opts.BaseURL == "" {
		opts.BaseURL = redditWebURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.CommentFetchLimit <= 0 {
		opts.CommentFetchLimit = 50
	}
	if filter == nil {
		filter = NewFilter(0, 0, 0)
	}
	return &Reddit{
		client:         &http.Client{Timeout: opts.Timeout},
		opts:           opts,
		filter:         filter,
		listLimiter:    newPacer(opts.CommunityPacing),
		commentLimiter: newPacer(opts.CommentPacing),
		tokenURL:       redditTokenURL,
	}
}

// newPacer allows one call per gap. A zero gap disables pacing.
func newPacer(gap time.Duration) *rate.Limiter {
	if gap <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(gap), 1)
}

func (r *Reddit) Name() SourceType { return SourceReddit }

// ListHot returns the hot threads of a community, skipping stickied posts.
func (r *Reddit) ListHot(ctx context.Context, community string, limit int) ([]Thread, error) {
	if limit <= 0 {
		limit = 50
	}
	if err := r.listLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pace r/%s: %w", community, err)
	}

	path := fmt.Sprintf("/r/%s/hot.json?limit=%d", url.PathEscape(community), limit)
	var listing redditListing
	if err := r.getJSON(ctx, path, &listing); err != nil {
		return nil, fmt.Errorf("fetch r/%s: %w", community, err)
	}

	var threads []Thread
	for _, child := range listing.Data.Children {
		post := child.Data
		id := strings.TrimSpace(post.ID)
		if id == "" || post.Stickied {
			continue
		}

		threads = append(threads, Thread{
			ID:        id,
			Community: community,
			Title:     textutil.SafeText(post.Title),
			Upvotes:   post.Score,
			Comments:  post.NumComments,
			CreatedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
			Permalink: redditWebURL + post.Permalink,
			ImageURL:  extractImage(post),
		})
	}

	return threads, nil
}

// TopComments returns up to limit usable top-level comments of a thread,
// highest score first.
func (r *Reddit) TopComments(ctx context.Context, threadID, community string, limit int) ([]Comment, error) {
	if err := r.commentLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pace comments %s: %w", threadID, err)
	}

	path := fmt.Sprintf("/r/%s/comments/%s.json?sort=top&limit=%d",
		url.PathEscape(community), url.PathEscape(threadID), r.opts.CommentFetchLimit)
	var listings []redditCommentListing
	if err := r.getJSON(ctx, path, &listings); err != nil {
		return nil, fmt.Errorf("fetch comments %s: %w", threadID, err)
	}

	// The first listing is the thread itself.
	if len(listings) < 2 {
		return nil, nil
	}

	var comments []Comment
	for _, child := range listings[1].Data.Children {
		body := textutil.SafeText(child.Data.Body)
		if !r.filter.KeepComment(body) {
			continue
		}
		comments = append(comments, Comment{
			ID:    child.Data.ID,
			Text:  body,
			Score: child.Data.Score,
		})
	}

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].Score > comments[j].Score
	})
	if limit > 0 && len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

func (r *Reddit) getJSON(ctx context.Context, path string, out any) error {
	base := r.opts.BaseURL
	authed := r.opts.ClientID != "" && r.opts.ClientSecret != ""
	if authed {
		if err := r.authenticate(ctx); err != nil {
			return fmt.Errorf("reddit auth: %w", err)
		}
		base = redditOAuthURL
		if r.opts.BaseURL != redditWebURL {
			base = r.opts.BaseURL
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)
	if authed {
		r.mu.Lock()
		req.Header.Set("Authorization", "Bearer "+r.token)
		r.mu.Unlock()
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func (r *Reddit) authenticate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && time.Now().Before(r.tokenExpiry) {
		return nil
	}

	data := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL,
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}

	req.SetBasicAuth(r.opts.ClientID, r.opts.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.opts.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("reddit token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit auth status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("decode reddit token: %w", err)
	}

	r.token = tokenResp.AccessToken
	r.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)
	return nil
}

// extractImage accepts only images hosted on i.redd.it. External previews are
// dropped because they expire and are often blocked when hotlinked.
func extractImage(post redditPost) string {
	if strings.HasPrefix(post.URLOverriddenByDest, redditImageHost) {
		return post.URLOverriddenByDest
	}
	if post.Preview != nil && len(post.Preview.Images) > 0 {
		src := strings.ReplaceAll(post.Preview.Images[0].Source.URL, "&amp;", "&")
		if strings.HasPrefix(src, redditImageHost) {
			return src
		}
	}
	return ""
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	URLOverriddenByDest string         `json:"url_overridden_by_dest"`
	Permalink           string         `json:"permalink"`
	Score               int            `json:"score"`
	NumComments         int            `json:"num_comments"`
	CreatedUTC          float64        `json:"created_utc"`
	Stickied            bool           `json:"stickied"`
	Preview             *redditPreview `json:"preview"`
}

type redditPreview struct {
	Images []struct {
		Source struct {
			URL string `json:"url"`
		} `json:"source"`
	} `json:"images"`
}

type redditCommentListing struct {
	Data struct {
		Children []struct {
			Kind string        `json:"kind"`
			Data redditComment `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditComment struct {
	ID    string `json:"id"`
	Body  string `json:"body"`
	Score int    `json:"score"`
}
