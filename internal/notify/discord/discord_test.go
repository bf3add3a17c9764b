package discord

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/opsline/checkline/internal/notify"
)

// mockSession records sent embeds.
type mockSession struct {
	channels []string
	embeds   []*discordgo.MessageEmbed
	err      error
}

func (m *mockSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.channels = append(m.channels, channelID)
	m.embeds = append(m.embeds, embed)
	if m.err != nil {
		return nil, m.err
	}
	return &discordgo.Message{}, nil
}

func TestNew_MissingToken(t *testing.T) {
	if _, err := New(NotifierOpts{ChannelID: "123"}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNew_MissingChannel(t *testing.T) {
	if _, err := New(NotifierOpts{BotToken: "token"}); err == nil {
		t.Fatal("expected error for missing channel")
	}
}

func TestNotify(t *testing.T) {
	mock := &mockSession{}
	n, err := New(NotifierOpts{ChannelID: "123", Session: mock})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}

	err = n.Notify(context.Background(), notify.Event{
		Title:    "Checklist expired: Daily Maintenance on CNC Lathe 1",
		Body:     "Session for Maria Santos timed out before completion.",
		Severity: notify.SeverityWarning,
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mock.embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(mock.embeds))
	}
	embed := mock.embeds[0]
	if embed.Title == "" || embed.Description == "" {
		t.Errorf("embed = %+v", embed)
	}
	if embed.Color != hexColor(notify.ColorWarning) {
		t.Errorf("color = %d, want warning", embed.Color)
	}
}

func TestNotify_APIError(t *testing.T) {
	mock := &mockSession{err: fmt.Errorf("unknown channel")}
	n, err := New(NotifierOpts{ChannelID: "123", Session: mock})
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.Notify(context.Background(), notify.Event{Title: "x"}); err == nil {
		t.Fatal("expected error from failing API")
	}
}

func TestHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"#36a64f", 0x36a64f},
		{"#ff9800", 0xff9800},
		{"not-a-color", 0},
	}
	for _, tt := range tests {
		if got := hexColor(tt.in); got != tt.want {
			t.Errorf("hexColor(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
