package notify

import (
	"context"
	"fmt"
	"testing"
)

func TestSeverityColor(t *testing.T) {
	tests := []struct {
		severity string
		want     string
	}{
		{SeveritySuccess, ColorSuccess},
		{SeverityWarning, ColorWarning},
		{SeverityInfo, ColorInfo},
		{"unknown", ColorInfo},
	}
	for _, tt := range tests {
		if got := SeverityColor(tt.severity); got != tt.want {
			t.Errorf("SeverityColor(%q) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

// recordingNotifier counts deliveries and optionally fails.
type recordingNotifier struct {
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestFanout_DeliversToAll(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{}
	fanout := Fanout{Notifiers: []Notifier{a, b}}

	event := Event{Title: "Checklist expired", Severity: SeverityWarning}
	if err := fanout.Notify(context.Background(), event); err != nil {
		t.Fatalf("fanout: %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", len(a.events), len(b.events))
	}
}

func TestFanout_SwallowsIndividualFailures(t *testing.T) {
	failing := &recordingNotifier{err: fmt.Errorf("channel gone")}
	ok := &recordingNotifier{}
	fanout := Fanout{Notifiers: []Notifier{failing, ok}}

	if err := fanout.Notify(context.Background(), Event{Title: "x"}); err != nil {
		t.Fatalf("fanout returned error: %v", err)
	}
	if len(ok.events) != 1 {
		t.Errorf("healthy notifier deliveries = %d, want 1", len(ok.events))
	}
}

func TestNoop(t *testing.T) {
	if err := (Noop{}).Notify(context.Background(), Event{Title: "x"}); err != nil {
		t.Fatalf("noop: %v", err)
	}
}
