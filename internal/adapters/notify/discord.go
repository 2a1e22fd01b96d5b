package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"cryptoSignalBot/internal/ports"
)

// Embed colors
const (
	ColorGreen = 0x00FF00
	ColorRed   = 0xFF0000
	ColorBlue  = 0x0000FF
)

// Discord caps an embed description at this many characters.
const discordDescriptionLimit = 4096

// DiscordMessage is the webhook payload.
type DiscordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed is a rich message block.
type DiscordEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// DiscordNotifier posts reports to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	httpClient *http.Client
	now        func() time.Time
}

// NewDiscordNotifier creates a new Discord webhook notifier
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// Notify posts the report as a single embed.
func (d *DiscordNotifier) Notify(ctx context.Context, title, body string) error {
	body = truncateRunes(body, discordDescriptionLimit)
	msg := DiscordMessage{Embeds: []DiscordEmbed{{
		Title:       title,
		Description: body,
		Color:       ColorBlue,
		Timestamp:   d.now().UTC().Format(time.RFC3339),
	}}}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("discord: encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord: send: %w: %w", ports.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	// Webhooks answer 204 unless ?wait=true is set.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord: unexpected status %d: %w", resp.StatusCode, ports.ErrDeliveryFailed)
	}
	return nil
}

// truncateRunes shortens s to at most limit characters, ending with "...".
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit-3]) + "..."
}
