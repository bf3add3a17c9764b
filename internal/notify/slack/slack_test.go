package slack

import (
	"context"
	"fmt"
	"testing"

	slackapi "github.com/slack-go/slack"

	"github.com/opsline/checkline/internal/notify"
)

// mockSlack records posted messages.
type mockSlack struct {
	channels []string
	calls    int
	err      error
}

func (m *mockSlack) PostMessageContext(_ context.Context, channelID string, _ ...slackapi.MsgOption) (string, string, error) {
	m.calls++
	m.channels = append(m.channels, channelID)
	if m.err != nil {
		return "", "", m.err
	}
	return channelID, "123.456", nil
}

func TestNew_MissingToken(t *testing.T) {
	if _, err := New(NotifierOpts{ChannelID: "C123"}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNew_MissingChannel(t *testing.T) {
	if _, err := New(NotifierOpts{BotToken: "xoxb-test"}); err == nil {
		t.Fatal("expected error for missing channel")
	}
}

func TestNotify(t *testing.T) {
	mock := &mockSlack{}
	n, err := New(NotifierOpts{ChannelID: "C123", Client: mock})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	err = n.Notify(context.Background(), notify.Event{
		Title:    "Checklist completed: Daily Maintenance on CNC Lathe 1",
		Body:     "Submitted by Maria Santos. All 3 tasks passed.",
		Severity: notify.SeveritySuccess,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("calls = %d, want 1", mock.calls)
	}
	if mock.channels[0] != "C123" {
		t.Errorf("channel = %q, want C123", mock.channels[0])
	}
}

func TestNotify_APIError(t *testing.T) {
	mock := &mockSlack{err: fmt.Errorf("channel_not_found")}
	n, err := New(NotifierOpts{ChannelID: "C123", Client: mock})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.Notify(context.Background(), notify.Event{Title: "x"}); err == nil {
		t.Fatal("expected error from failing API")
	}
}
