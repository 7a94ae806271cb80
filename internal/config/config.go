package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/elonfeng/bubbles/pkg/bubble"
	"github.com/elonfeng/bubbles/pkg/enrich"
	"github.com/elonfeng/bubbles/pkg/llm"
	"github.com/elonfeng/bubbles/pkg/source"
)

// ErrMissingAPIKey is returned when a command needs the language model and no
// key is configured.
var ErrMissingAPIKey = errors.New("llm api key is not configured (set OPENAI_API_KEY or ANTHROPIC_API_KEY)")

// Config is the root configuration.
type Config struct {
	Output   OutputConfig   `yaml:"output"`
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Reddit   RedditConfig   `yaml:"reddit"`
	Filter   FilterConfig   `yaml:"filter"`
	Comments CommentsConfig `yaml:"comments"`
	Cluster  ClusterConfig  `yaml:"cluster"`
	Pacing   PacingConfig   `yaml:"pacing"`
	Feed     FeedConfig     `yaml:"feed"`
	LLM      LLMConfig      `yaml:"llm"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// OutputConfig sets where feed documents are written.
type OutputConfig struct {
	Path         string `yaml:"path" env:"BUBBLES_OUTPUT"`
	SnapshotPath string `yaml:"snapshot_path" env:"BUBBLES_SNAPSHOT_OUTPUT"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"BUBBLES_DB_PATH"`
}

// ScheduleConfig configures the daemon loop.
type ScheduleConfig struct {
	RunInterval string `yaml:"run_interval" env:"BUBBLES_RUN_INTERVAL"`
}

// ParseRunInterval returns the run interval as time.Duration.
func (s ScheduleConfig) ParseRunInterval() time.Duration {
	return parseDuration(s.RunInterval, 6*time.Hour)
}

// RedditConfig for the Reddit collector.
type RedditConfig struct {
	Communities  []string `yaml:"communities" env:"BUBBLES_COMMUNITIES" envSeparator:","`
	HotLimit     int      `yaml:"hot_limit" env:"BUBBLES_HOT_LIMIT"`
	UserAgent    string   `yaml:"user_agent" env:"BUBBLES_REDDIT_USER_AGENT"`
	BaseURL      string   `yaml:"base_url" env:"BUBBLES_REDDIT_BASE_URL"`
	ClientID     string   `yaml:"client_id" env:"REDDIT_CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"REDDIT_CLIENT_SECRET"`
	Timeout      string   `yaml:"timeout"`
}

// FilterConfig holds the engagement floors. A thread passes when either one
// is met.
type FilterConfig struct {
	MinUpvotes  int `yaml:"min_upvotes" env:"BUBBLES_MIN_UPVOTES"`
	MinComments int `yaml:"min_comments" env:"BUBBLES_MIN_COMMENTS"`
}

// CommentsConfig controls which comments are kept per thread.
type CommentsConfig struct {
	MaxPerPost int `yaml:"max_per_post"`
	MinChars   int `yaml:"min_chars"`
	FetchLimit int `yaml:"fetch_limit"`
}

// ClusterConfig tunes keyword clustering and comment merging.
type ClusterConfig struct {
	MinOverlap       int `yaml:"min_overlap" env:"BUBBLES_MIN_OVERLAP"`
	MaxPostsToMerge  int `yaml:"max_posts_to_merge"`
	MaxTotalComments int `yaml:"max_total_comments"`
}

// PacingConfig holds the delays between calls to Reddit.
type PacingConfig struct {
	BetweenCommunities    string `yaml:"between_communities"`
	BetweenCommentFetches string `yaml:"between_comment_fetches"`
}

// FeedConfig shapes the published feed.
type FeedConfig struct {
	TopN      int     `yaml:"top_n" env:"BUBBLES_TOP_N"`
	MinRadius float64 `yaml:"min_radius"`
	MaxRadius float64 `yaml:"max_radius"`
}

// LLMConfig configures the enrichment model.
type LLMConfig struct {
	Provider           string  `yaml:"provider" env:"BUBBLES_LLM_PROVIDER"` // "openai" or "anthropic"
	Model              string  `yaml:"model" env:"BUBBLES_LLM_MODEL"`
	APIKey             string  `yaml:"api_key" env:"BUBBLES_LLM_API_KEY"`
	BaseURL            string  `yaml:"base_url" env:"BUBBLES_LLM_BASE_URL"`
	Timeout            string  `yaml:"timeout"`
	Temperature        float64 `yaml:"temperature"`
	MaxTokens          int     `yaml:"max_tokens"`
	PromptCommentLines int     `yaml:"prompt_comment_lines"`
	Language           string  `yaml:"language" env:"BUBBLES_LANGUAGE"`
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	Top     int           `yaml:"top"`
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret" env:"BUBBLES_WEBHOOK_SECRET"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" env:"BUBBLES_PORT"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"BUBBLES_LOG_LEVEL"`
	Format string `yaml:"format" env:"BUBBLES_LOG_FORMAT"` // "console" or "json"
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Path:         "bubbles_enriched.json",
			SnapshotPath: "bubbles.json",
		},
		Database: DatabaseConfig{Path: "./bubbles.db"},
		Schedule: ScheduleConfig{RunInterval: "6h"},
		Reddit: RedditConfig{
			Communities: []string{"worldnews", "technology", "science", "economics", "geopolitics"},
			HotLimit:    50,
			UserAgent:   "BubblesMVP/0.2",
			Timeout:     "20s",
		},
		Filter: FilterConfig{MinUpvotes: 300, MinComments: 100},
		Comments: CommentsConfig{
			MaxPerPost: 40,
			MinChars:   30,
			FetchLimit: 50,
		},
		Cluster: ClusterConfig{
			MinOverlap:       1,
			MaxPostsToMerge:  4,
			MaxTotalComments: 60,
		},
		Pacing: PacingConfig{
			BetweenCommunities:    "1s",
			BetweenCommentFetches: "300ms",
		},
		Feed: FeedConfig{TopN: 20, MinRadius: 36, MaxRadius: 96},
		LLM: LLMConfig{
			Provider:           llm.ProviderOpenAI,
			Model:              "gpt-4.1-mini",
			Timeout:            "60s",
			Temperature:        0.1,
			MaxTokens:          550,
			PromptCommentLines: 40,
			Language:           "Brazilian Portuguese",
		},
		Alerts: AlertsConfig{Top: 5},
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads configuration from a YAML file, then a .env file in the working
// directory, then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides fills values from the conventional provider variables.
func applyEnvOverrides(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case llm.ProviderAnthropic:
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
}

// Validate normalizes out-of-range values and, when requireLLM is set,
// checks that a model key is present.
func (c *Config) Validate(requireLLM bool) error {
	if c.Cluster.MinOverlap < 1 {
		c.Cluster.MinOverlap = 1
	}
	if c.Feed.TopN <= 0 {
		c.Feed.TopN = 20
	}
	if c.Feed.MaxRadius < c.Feed.MinRadius {
		return fmt.Errorf("feed.max_radius %.2f is below feed.min_radius %.2f", c.Feed.MaxRadius, c.Feed.MinRadius)
	}
	if len(c.Reddit.Communities) == 0 {
		return errors.New("reddit.communities is empty")
	}
	switch c.LLM.Provider {
	case llm.ProviderOpenAI, llm.ProviderAnthropic:
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	if requireLLM && c.LLM.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// BubbleOptions converts the pipeline settings.
func (c *Config) BubbleOptions() bubble.Options {
	return bubble.Options{
		Communities:      c.Reddit.Communities,
		HotLimit:         c.Reddit.HotLimit,
		TopN:             c.Feed.TopN,
		MinOverlap:       c.Cluster.MinOverlap,
		MaxPostsToMerge:  c.Cluster.MaxPostsToMerge,
		MaxTotalComments: c.Cluster.MaxTotalComments,
		CommentsPerPost:  c.Comments.MaxPerPost,
		MinRadius:        c.Feed.MinRadius,
		MaxRadius:        c.Feed.MaxRadius,
	}
}

// RedditOptions converts the collector settings.
func (c *Config) RedditOptions() source.RedditOptions {
	return source.RedditOptions{
		BaseURL:           c.Reddit.BaseURL,
		UserAgent:         c.Reddit.UserAgent,
		ClientID:          c.Reddit.ClientID,
		ClientSecret:      c.Reddit.ClientSecret,
		Timeout:           parseDuration(c.Reddit.Timeout, 20*time.Second),
		CommunityPacing:   parseDuration(c.Pacing.BetweenCommunities, time.Second),
		CommentPacing:     parseDuration(c.Pacing.BetweenCommentFetches, 300*time.Millisecond),
		CommentFetchLimit: c.Comments.FetchLimit,
	}
}

// ThreadFilter builds the engagement and comment filter.
func (c *Config) ThreadFilter() *source.Filter {
	return source.NewFilter(c.Filter.MinUpvotes, c.Filter.MinComments, c.Comments.MinChars)
}

// EnrichOptions converts the enrichment settings.
func (c *Config) EnrichOptions() enrich.Options {
	return enrich.Options{
		Temperature:        c.LLM.Temperature,
		MaxTokens:          c.LLM.MaxTokens,
		PromptCommentLines: c.LLM.PromptCommentLines,
		Language:           c.LLM.Language,
	}
}

// LLMOptions converts the provider settings.
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Provider: c.LLM.Provider,
		Model:    c.LLM.Model,
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.BaseURL,
		Timeout:  parseDuration(c.LLM.Timeout, 60*time.Second),
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
