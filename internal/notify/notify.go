// Package notify delivers the short user-facing messages the storage
// manager emits after each operation.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tierstore/tierstore/internal/metrics"
)

// Logger forwards notifications to slog.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a Logger. A nil logger uses slog.Default().
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{logger: l.With("component", "notify")}
}

func (n *Logger) Notify(level slog.Level, message string) {
	metrics.NotificationsTotal.WithLabelValues(level.String()).Inc()
	n.logger.Log(context.Background(), level, message)
}

// Notification is one recorded message.
type Notification struct {
	Level   slog.Level `json:"level"`
	Message string     `json:"message"`
	Time    time.Time  `json:"time"`
}

// Recorder keeps the most recent notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	limit int
	items []Notification
}

// NewRecorder creates a Recorder keeping at most limit notifications; a
// limit of zero or less keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(level slog.Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Level: level, Message: message, Time: time.Now().UTC()})
	if r.limit > 0 && len(r.items) > r.limit {
		r.items = r.items[len(r.items)-r.limit:]
	}
}

// All returns a copy of the recorded notifications, oldest first.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Count returns how many notifications are at or above minLevel.
func (r *Recorder) Count(minLevel slog.Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.Level >= minLevel {
			n++
		}
	}
	return n
}

// Reset drops every recorded notification.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}

// Notifier is the interface Multi fans out to.
type Notifier interface {
	Notify(level slog.Level, message string)
}

// Multi delivers each notification to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(level slog.Level, message string) {
	for _, n := range m {
		n.Notify(level, message)
	}
}
