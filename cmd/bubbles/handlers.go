package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"github.com/elonfeng/bubbles/internal/config"
	"github.com/elonfeng/bubbles/internal/scheduler"
	"github.com/elonfeng/bubbles/internal/store"
	"github.com/elonfeng/bubbles/pkg/alert"
	"github.com/elonfeng/bubbles/pkg/bubble"
	"github.com/elonfeng/bubbles/pkg/enrich"
	"github.com/elonfeng/bubbles/pkg/feed"
	"github.com/elonfeng/bubbles/pkg/llm"
	"github.com/elonfeng/bubbles/pkg/server"
	"github.com/elonfeng/bubbles/pkg/source"
	"github.com/elonfeng/bubbles/pkg/textutil"
)

func loadConfig(requireLLM bool) (*config.Config, *zerolog.Logger, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(requireLLM); err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cfg.Log), nil
}

func newLogger(c config.LogConfig) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if c.Format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	logger = logger.Level(level).With().Timestamp().Logger()
	return &logger
}

func buildCompleter(cfg *config.Config, logger *zerolog.Logger) (llm.Completer, error) {
	c, err := llm.New(cfg.LLMOptions())
	if err != nil {
		return nil, err
	}
	logger.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("llm configured")
	return c, nil
}

// buildEngine wires the Reddit collector and, when withLLM is set, the
// enrichment model.
func buildEngine(cfg *config.Config, logger *zerolog.Logger, withLLM bool) (*bubble.Engine, error) {
	filter := cfg.ThreadFilter()
	reddit := source.NewReddit(cfg.RedditOptions(), filter)

	var enricher bubble.Enricher
	if withLLM {
		c, err := buildCompleter(cfg, logger)
		if err != nil {
			return nil, err
		}
		enricher = enrich.New(c, cfg.EnrichOptions(), logger)
	}
	return bubble.NewEngine(reddit, filter, enricher, cfg.BubbleOptions(), logger), nil
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

// buildJob assembles the publishing run. A nil store skips history and alerts.
func buildJob(cfg *config.Config, logger *zerolog.Logger, db store.Store, output string) (*scheduler.Job, error) {
	engine, err := buildEngine(cfg, logger, true)
	if err != nil {
		return nil, err
	}
	if output == "" {
		output = cfg.Output.Path
	}
	var alerts *alert.Manager
	if db != nil {
		alerts = buildAlertManager(cfg)
	}
	return scheduler.NewJob(engine, db, alerts, output, cfg.Alerts.Top, logger), nil
}

// emptyRun reports whether err only means the run had nothing to publish.
func emptyRun(err error) bool {
	return errors.Is(err, bubble.ErrNoItems) || errors.Is(err, bubble.ErrNoClusters)
}

func runOnce(ctx context.Context, output string, noStore bool) error {
	cfg, logger, err := loadConfig(true)
	if err != nil {
		return err
	}

	var db store.Store
	if !noStore {
		s, err := store.New(cfg.Database.Path, logger)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		db = s
	}

	job, err := buildJob(cfg, logger, db, output)
	if err != nil {
		return err
	}

	id, doc, err := job.RunOnce(ctx)
	if emptyRun(err) {
		fmt.Printf("nothing to publish: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	if output == "" {
		output = cfg.Output.Path
	}
	if id != "" {
		fmt.Printf("wrote %d bubbles to %s (feed %s)\n", doc.Count, output, id)
	} else {
		fmt.Printf("wrote %d bubbles to %s\n", doc.Count, output)
	}
	return nil
}

func runSnapshot(ctx context.Context, output string, top int) error {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		return err
	}
	if output == "" {
		output = cfg.Output.SnapshotPath
	}

	engine, err := buildEngine(cfg, logger, false)
	if err != nil {
		return err
	}

	doc, err := engine.Snapshot(ctx, top)
	if emptyRun(err) {
		fmt.Printf("nothing to publish: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	if err := feed.WriteFile(output, doc); err != nil {
		return err
	}
	fmt.Printf("wrote %d threads to %s\n", doc.Count, output)
	return nil
}

func runLabel(ctx context.Context, input, output string) error {
	cfg, logger, err := loadConfig(true)
	if err != nil {
		return err
	}
	if input == "" {
		input = cfg.Output.SnapshotPath
	}
	if output == "" {
		output = cfg.Output.Path
	}

	doc, err := feed.ReadFile(input)
	if err != nil {
		return err
	}

	c, err := buildCompleter(cfg, logger)
	if err != nil {
		return err
	}
	labeled := enrich.NewLabeler(c, cfg.LLM.Language, logger).LabelDocument(ctx, doc)

	if err := feed.WriteFile(output, labeled); err != nil {
		return err
	}
	fmt.Printf("labeled %d items into %s\n", labeled.Count, output)
	return nil
}

func runFeeds(ctx context.Context, since string, jsonOutput bool, limit int) error {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		return err
	}

	opts := store.ListOpts{Limit: limit}
	if since != "" {
		t, err := dateparse.ParseAny(since)
		if err != nil {
			return fmt.Errorf("parse --since %q: %w", since, err)
		}
		opts.Since = t
	}

	db, err := store.New(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	records, err := db.ListFeeds(ctx, opts)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("no feeds stored (try: bubbles run)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GENERATED\tBUBBLES\tALERTED\tID\tTOP BUBBLE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%d\t%t\t%s\t%s\n",
			r.GeneratedAt.Format(time.RFC3339), r.Count, r.Alerted, r.ID,
			textutil.Truncate(r.TopTitle, 60))
	}
	return w.Flush()
}

func runServe(ctx context.Context, port int) error {
	cfg, logger, err := loadConfig(false)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	srv := server.New(db, nil, port, logger)
	return srv.ListenAndServe(ctx)
}

func runDaemon(ctx context.Context, port int) error {
	cfg, logger, err := loadConfig(true)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	job, err := buildJob(cfg, logger, db, "")
	if err != nil {
		return err
	}

	sched := scheduler.New(job, cfg.Schedule.ParseRunInterval(), logger)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("scheduler error")
		}
	}()

	srv := server.New(db, job, port, logger)
	return srv.ListenAndServe(ctx)
}
