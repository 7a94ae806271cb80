// Package store keeps the history of published feeds in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/bubbles/pkg/feed"
)

// ErrNotFound is returned when a requested feed does not exist.
var ErrNotFound = errors.New("feed not found")

// timeLayout sorts lexicographically, so range queries work on TEXT columns.
const timeLayout = "2006-01-02T15:04:05Z"

// FeedRecord summarizes one stored run.
type FeedRecord struct {
	ID          string    `db:"id" json:"id"`
	GeneratedAt time.Time `db:"-" json:"generated_at"`
	CreatedAt   time.Time `db:"-" json:"created_at"`
	Count       int       `db:"count" json:"count"`
	TopTitle    string    `db:"top_title" json:"top_title"`
	Alerted     bool      `db:"alerted" json:"alerted"`

	GeneratedAtText string `db:"generated_at" json:"-"`
	CreatedAtText   string `db:"created_at" json:"-"`
}

// ListOpts controls feed listing.
type ListOpts struct {
	Since time.Time
	Limit int
}

// Store is the persistence interface.
type Store interface {
	SaveFeed(ctx context.Context, doc *feed.Document) (string, error)
	LatestFeed(ctx context.Context) (string, *feed.Document, error)
	GetFeed(ctx context.Context, id string) (*feed.Document, error)
	ListFeeds(ctx context.Context, opts ListOpts) ([]FeedRecord, error)
	MarkAlerted(ctx context.Context, id string) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// New opens a SQLite database and runs migrations.
func New(path string, logger *zerolog.Logger) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if err := migrate(db.DB, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveFeed stores a document and its ranked bubbles and returns the new run id.
func (s *SQLiteStore) SaveFeed(ctx context.Context, doc *feed.Document) (string, error) {
	data, err := feed.Encode(doc)
	if err != nil {
		return "", err
	}

	generated, err := time.Parse(time.RFC3339, doc.GeneratedAt)
	if err != nil {
		return "", fmt.Errorf("parse generatedAt %q: %w", doc.GeneratedAt, err)
	}

	id := uuid.NewString()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO feeds (id, generated_at, created_at, count, document)
		VALUES (?, ?, ?, ?, ?)
	`, id, generated.UTC().Format(timeLayout), s.now().UTC().Format(timeLayout), doc.Count, string(data))
	if err != nil {
		return "", fmt.Errorf("insert feed: %w", err)
	}

	for _, it := range doc.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bubbles (feed_id, rank, bubble_id, title, label, subreddit, relevance, radius)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, id, it.Rank, it.ID, it.Title, it.Label, it.Subreddit, it.RelevanceScore, it.SuggestedRadius)
		if err != nil {
			return "", fmt.Errorf("insert bubble %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit feed: %w", err)
	}
	return id, nil
}

// LatestFeed returns the most recently generated document and its id.
func (s *SQLiteStore) LatestFeed(ctx context.Context) (string, *feed.Document, error) {
	var row struct {
		ID       string `db:"id"`
		Document string `db:"document"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT id, document FROM feeds ORDER BY generated_at DESC, created_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("latest feed: %w", err)
	}

	doc, err := feed.Decode([]byte(row.Document))
	if err != nil {
		return "", nil, err
	}
	return row.ID, doc, nil
}

// GetFeed returns the document stored under id.
func (s *SQLiteStore) GetFeed(ctx context.Context, id string) (*feed.Document, error) {
	var data string
	err := s.db.GetContext(ctx, &data, "SELECT document FROM feeds WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get feed %s: %w", id, err)
	}
	return feed.Decode([]byte(data))
}

// ListFeeds returns stored runs, newest first.
func (s *SQLiteStore) ListFeeds(ctx context.Context, opts ListOpts) ([]FeedRecord, error) {
	query := `
		SELECT f.id, f.generated_at, f.created_at, f.count, f.alerted,
		       COALESCE(b.title, '') AS top_title
		FROM feeds f
		LEFT JOIN bubbles b ON b.feed_id = f.id AND b.rank = 1
		WHERE 1=1`
	var args []any

	if !opts.Since.IsZero() {
		query += " AND f.generated_at >= ?"
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}

	query += " ORDER BY f.generated_at DESC, f.created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var records []FeedRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}

	for i := range records {
		records[i].GeneratedAt, _ = time.Parse(timeLayout, records[i].GeneratedAtText)
		records[i].CreatedAt, _ = time.Parse(timeLayout, records[i].CreatedAtText)
	}
	return records, nil
}

// MarkAlerted flags a run whose alerts were sent.
func (s *SQLiteStore) MarkAlerted(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE feeds SET alerted = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark alerted %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
