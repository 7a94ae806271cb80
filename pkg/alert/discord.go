package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elonfeng/bubbles/pkg/textutil"
)

// Discord embed descriptions are capped at 4096 characters.
const discordDescriptionLimit = 4096

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{client: newClient(), webhookURL: webhookURL}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	lines := make([]string, 0, len(n.Bubbles))
	for _, b := range n.Bubbles {
		line := fmt.Sprintf("**%d.** [%s](%s) · r/%s", b.Rank, b.Title, b.Permalink, b.Subreddit)
		if b.Context != "" {
			line += "\n" + textutil.Truncate(b.Context, 200)
		}
		lines = append(lines, line)
	}

	embed := map[string]any{
		"title":       "🫧 " + n.Title,
		"description": textutil.Truncate(strings.Join(lines, "\n\n"), discordDescriptionLimit),
		"color":       0x3BA4F5,
		"timestamp":   n.GeneratedAt,
	}

	body, err := json.Marshal(map[string]any{"embeds": []map[string]any{embed}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	if err := postJSON(ctx, d.client, d.webhookURL, body, nil); err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}
