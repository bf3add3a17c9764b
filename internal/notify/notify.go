// Package notify delivers supervisor notifications for checklist events.
package notify

import (
	"context"
	"log"
)

// Event severities.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
)

// Sidebar color hints for platforms that support them.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
)

// SeverityColor maps a severity string to a sidebar color.
func SeverityColor(severity string) string {
	switch severity {
	case SeveritySuccess:
		return ColorSuccess
	case SeverityWarning:
		return ColorWarning
	default:
		return ColorInfo
	}
}

// Event is a supervisor-facing notification.
type Event struct {
	Title    string
	Body     string
	Severity string // info, success, warning
}

// Notifier delivers events to one channel. Delivery is best-effort; the
// conversation never depends on a notification landing.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Noop discards all events.
type Noop struct{}

// Notify discards the event.
func (Noop) Notify(context.Context, Event) error { return nil }

// Fanout delivers each event to every configured notifier. Individual
// failures are logged and swallowed.
type Fanout struct {
	Notifiers []Notifier
}

// Notify sends the event to all notifiers.
func (f Fanout) Notify(ctx context.Context, event Event) error {
	for _, n := range f.Notifiers {
		if err := n.Notify(ctx, event); err != nil {
			log.Printf("notify: %v", err)
		}
	}
	return nil
}
