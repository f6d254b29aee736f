package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"veil/internal/config"
	"veil/internal/scores"
)

const userAgent = "Veil/0.1.0"

// Service defines the notification surface exposed to monitoring components.
type Service interface {
	NotifyFilterTriggered(ctx context.Context, title string, action scores.Action, categories []string, resumeAt float64) error
	NotifyScoresUpdated(ctx context.Context, mediaID string, segments int) error
	NotifyScoresRemoved(ctx context.Context, mediaID string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:     topic,
		client:       client,
		filterEvents: cfg.Notifications.FilterEvents,
		scoreUpdates: cfg.Notifications.ScoreUpdates,
		errors:       cfg.Notifications.Errors,
	}
}

// DisplayCategories renders canonical category keys as human-readable names.
func DisplayCategories(categories []string) string {
	if len(categories) == 0 {
		return "Unspecified"
	}
	titler := cases.Title(language.English)
	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, titler.String(category))
	}
	return strings.Join(names, ", ")
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	filterEvents bool
	scoreUpdates bool
	errors       bool
}

func (n *ntfyService) NotifyFilterTriggered(ctx context.Context, title string, action scores.Action, categories []string, resumeAt float64) error {
	if !n.filterEvents {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "current playback"
	}
	var message string
	switch action {
	case scores.ActionMute:
		message = fmt.Sprintf("🔇 Muted %s (%s)", title, DisplayCategories(categories))
	default:
		message = fmt.Sprintf("⏭️ Skipped ahead in %s to %s (%s)", title, formatTimestamp(resumeAt), DisplayCategories(categories))
	}
	data := payload{
		title:   "Veil - Content Filtered",
		message: message,
		tags:    []string{"veil", "filter", string(action)},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScoresUpdated(ctx context.Context, mediaID string, segments int) error {
	if !n.scoreUpdates {
		return nil
	}
	data := payload{
		title:   "Veil - Scores Updated",
		message: fmt.Sprintf("Score record for %s replaced with %d segments", strings.TrimSpace(mediaID), segments),
		tags:    []string{"veil", "scores", "updated"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyScoresRemoved(ctx context.Context, mediaID string) error {
	if !n.scoreUpdates {
		return nil
	}
	data := payload{
		title:   "Veil - Scores Removed",
		message: fmt.Sprintf("Score record for %s removed", strings.TrimSpace(mediaID)),
		tags:    []string{"veil", "scores", "removed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Veil - Error",
		message:  builder.String(),
		tags:     []string{"veil", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Veil - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"veil", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyFilterTriggered(context.Context, string, scores.Action, []string, float64) error {
	return nil
}
func (noopService) NotifyScoresUpdated(context.Context, string, int) error { return nil }
func (noopService) NotifyScoresRemoved(context.Context, string) error      { return nil }
func (noopService) NotifyError(context.Context, error, string) error       { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
