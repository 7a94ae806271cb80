// Package alert pushes a summary of each new feed to chat and webhook
// destinations.
package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elonfeng/bubbles/pkg/feed"
)

const defaultTop = 5

// Bubble is the slice of a feed item carried in a notification.
type Bubble struct {
	Rank      int     `json:"rank"`
	Title     string  `json:"title"`
	Label     string  `json:"label"`
	Context   string  `json:"context"`
	Subreddit string  `json:"subreddit"`
	Permalink string  `json:"permalink"`
	Relevance float64 `json:"relevance"`
}

// Notification is the data sent to alert destinations.
type Notification struct {
	FeedID      string   `json:"feed_id"`
	GeneratedAt string   `json:"generated_at"`
	Title       string   `json:"title"`
	Total       int      `json:"total"`
	Bubbles     []Bubble `json:"bubbles"`
}

// NewNotification summarizes the top bubbles of a stored feed.
func NewNotification(feedID string, doc *feed.Document, top int) *Notification {
	if top <= 0 {
		top = defaultTop
	}
	items := doc.Items
	if len(items) > top {
		items = items[:top]
	}

	bubbles := make([]Bubble, len(items))
	for i, it := range items {
		bubbles[i] = Bubble{
			Rank:      it.Rank,
			Title:     it.Title,
			Label:     it.Label,
			Context:   it.Context,
			Subreddit: it.Subreddit,
			Permalink: it.Permalink,
			Relevance: it.RelevanceScore,
		}
	}

	return &Notification{
		FeedID:      feedID,
		GeneratedAt: doc.GeneratedAt,
		Title:       fmt.Sprintf("%d bubbles in the new feed", doc.Count),
		Total:       doc.Count,
		Bubbles:     bubbles,
	}
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to every notifier. One failing destination
// does not stop the others.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func newClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// postJSON sends body and fails on any non-2xx answer.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
