package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipmato/internal/config"
)

const userAgent = "Clipmato-Go/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventJobCompleted    Event = "job_completed"
	EventJobFailed       Event = "job_failed"
	EventScheduleApplied Event = "schedule_applied"
	EventTest            Event = "test"
)

// Payload carries event fields. Values are rendered with fmt.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted:    cfg.Notifications.JobComplete,
			EventJobFailed:       cfg.Notifications.Errors,
			EventScheduleApplied: cfg.Notifications.JobComplete,
			EventTest:            true,
		},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, fields Payload) error {
	if !n.enabled[event] {
		return nil
	}
	data, ok := render(event, fields)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func render(event Event, fields Payload) (payload, bool) {
	switch event {
	case EventJobCompleted:
		message := fmt.Sprintf("✅ Episode ready: %s", field(fields, "title"))
		if lang := field(fields, "language"); lang != "" {
			message = fmt.Sprintf("%s (%s)", message, lang)
		}
		return payload{
			title:   "Clipmato - Complete",
			message: message,
			tags:    []string{"clipmato", "job", "completed"},
		}, true
	case EventJobFailed:
		var builder strings.Builder
		builder.WriteString("❌ Processing failed")
		if name := field(fields, "filename"); name != "" {
			builder.WriteString(" for ")
			builder.WriteString(name)
		}
		builder.WriteString(": ")
		if msg := field(fields, "error"); msg != "" {
			builder.WriteString(msg)
		} else {
			builder.WriteString("unknown")
		}
		return payload{
			title:    "Clipmato - Error",
			message:  builder.String(),
			tags:     []string{"clipmato", "error", "alert"},
			priority: "high",
		}, true
	case EventScheduleApplied:
		return payload{
			title:   "Clipmato - Scheduled",
			message: fmt.Sprintf("📅 Scheduled %s episode(s), first at %s", field(fields, "count"), field(fields, "first")),
			tags:    []string{"clipmato", "schedule"},
		}, true
	case EventTest:
		return payload{
			title:    "Clipmato - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"clipmato", "test"},
			priority: "low",
		}, true
	}
	return payload{}, false
}

func field(fields Payload, key string) string {
	value, ok := fields[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
