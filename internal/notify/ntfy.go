// Package notify forwards operational notifications to an ntfy topic.
// Delivery is best-effort: when ntfy is unreachable the notification is
// appended to a local JSONL fallback log instead of failing the caller.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moltbot/philosopher/internal/config"
)

// Type is a notification category.
type Type string

const (
	TypeError     Type = "error"
	TypeAction    Type = "action"
	TypeHeartbeat Type = "heartbeat"
	TypeSecurity  Type = "security"
)

func (t Type) valid() bool {
	switch t {
	case TypeError, TypeAction, TypeHeartbeat, TypeSecurity:
		return true
	}
	return false
}

// MaxTitleLength is the ntfy title limit.
const MaxTitleLength = 100

const requestTimeout = 10 * time.Second

var typeEmojis = map[Type]string{
	TypeError:     "❌",
	TypeAction:    "✅",
	TypeHeartbeat: "💓",
	TypeSecurity:  "🚨",
}

// Metadata carries optional delivery attributes.
type Metadata struct {
	Priority     string   `json:"priority,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	ClickURL     string   `json:"clickUrl,omitempty"`
	Actions      any      `json:"actions,omitempty"`
	SourceScript string   `json:"source_script,omitempty"`
}

// Result reports the delivery outcome.
type Result struct {
	Success    bool   `json:"success,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
	Fallback   bool   `json:"fallback,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// Notifier publishes to an ntfy topic.
type Notifier struct {
	cfg    config.NtfyConfig
	client *http.Client
	logger zerolog.Logger

	mu sync.Mutex // serializes fallback log appends
}

// New creates a notifier from configuration.
func New(cfg config.NtfyConfig, logger zerolog.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// priorityFor resolves the ntfy priority for a notification type.
func (n *Notifier) priorityFor(t Type) string {
	switch t {
	case TypeError:
		if n.cfg.PriorityErrors != "" {
			return n.cfg.PriorityErrors
		}
		return "urgent"
	case TypeHeartbeat:
		return "low"
	case TypeSecurity:
		return "urgent"
	default:
		if n.cfg.PriorityActions != "" {
			return n.cfg.PriorityActions
		}
		return "default"
	}
}

// Notify publishes one notification. Unknown types are coerced to action
// with a warning. Failures never propagate; they land in the fallback log.
func (n *Notifier) Notify(ctx context.Context, t Type, title, message string, meta Metadata) Result {
	if !n.cfg.Enabled {
		n.logger.Info().Str("type", string(t)).Str("title", title).Msg("ntfy disabled, skipping")
		return Result{Skipped: true, Reason: "disabled"}
	}
	if n.cfg.Token == "" {
		n.logger.Error().Msg("ntfy token not configured")
		return Result{Error: "missing_api_key"}
	}

	if !t.valid() {
		n.logger.Warn().Str("type", string(t)).Msg("invalid notification type, coercing to action")
		t = TypeAction
	}

	priority := meta.Priority
	if priority == "" {
		priority = n.priorityFor(t)
	}

	emoji := typeEmojis[t]
	source := meta.SourceScript
	if source == "" {
		source = "unknown"
	}
	body := fmt.Sprintf("%s %s\n\nSource: %s", emoji, message, source)

	url := strings.TrimRight(n.cfg.URL, "/") + "/" + n.cfg.Topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return n.fail(t, title, message, err)
	}

	// The Title header must stay ASCII; the emoji goes in the body.
	req.Header.Set("Title", fmt.Sprintf("[%s] %s", strings.ToUpper(string(t)), title))
	req.Header.Set("Priority", priority)
	req.Header.Set("Authorization", "Bearer "+n.cfg.Token)
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Tags", tagsHeader(t, meta.Tags))
	if meta.ClickURL != "" {
		req.Header.Set("Click", meta.ClickURL)
	}
	if meta.Actions != nil {
		if actions, err := json.Marshal(meta.Actions); err == nil {
			req.Header.Set("Actions", string(actions))
		}
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return n.fail(t, title, message, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return n.fail(t, title, message, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	n.logger.Info().Str("type", string(t)).Str("title", title).Int("status", resp.StatusCode).Msg("notification sent")
	return Result{Success: true, StatusCode: resp.StatusCode}
}

// tagsHeader merges the type and the moltbot marker with any custom tags,
// deduplicated in stable order.
func tagsHeader(t Type, extra []string) string {
	seen := map[string]bool{}
	tags := []string{}
	for _, tag := range append([]string{string(t), "moltbot"}, extra...) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return strings.Join(tags, ",")
}

func (n *Notifier) fail(t Type, title, message string, cause error) Result {
	n.logger.Error().Err(cause).Str("type", string(t)).Str("title", title).Msg("notification failed")
	n.logFallback(t, title, message, cause)
	return Result{Error: cause.Error(), Fallback: true}
}

// FallbackEntry is one JSONL record of an undelivered notification.
type FallbackEntry struct {
	Timestamp string `json:"timestamp"`
	Type      Type   `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Error     string `json:"error"`
}

func (n *Notifier) logFallback(t Type, title, message string, cause error) {
	if n.cfg.FallbackLog == "" {
		return
	}

	entry := FallbackEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Type:      t,
		Title:     title,
		Message:   message,
		Error:     cause.Error(),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(n.cfg.FallbackLog), 0755); err != nil {
		n.logger.Error().Err(err).Msg("could not create fallback log directory")
		return
	}
	f, err := os.OpenFile(n.cfg.FallbackLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		n.logger.Error().Err(err).Msg("could not write fallback log")
		return
	}
	defer f.Close()
	f.Write(append(line, '\n'))
}

// FallbackEntries reads the fallback log, oldest first. A missing log
// yields an empty slice.
func (n *Notifier) FallbackEntries() []FallbackEntry {
	n.mu.Lock()
	defer n.mu.Unlock()

	data, err := os.ReadFile(n.cfg.FallbackLog)
	if err != nil {
		return []FallbackEntry{}
	}

	entries := []FallbackEntry{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry FallbackEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })
	return entries
}

// Enabled reports whether delivery is configured on.
func (n *Notifier) Enabled() bool { return n.cfg.Enabled }

// Topic returns the configured ntfy topic.
func (n *Notifier) Topic() string { return n.cfg.Topic }

// URL returns the configured ntfy base URL.
func (n *Notifier) URL() string { return n.cfg.URL }
