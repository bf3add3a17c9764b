package webhook

import "testing"

func TestNormalize_Text(t *testing.T) {
	event := &Event{
		Entry: []Entry{{
			Changes: []Change{{
				Value: ChangeValue{
					Messages: []ProviderMessage{{
						From: "15550001111",
						Type: "text",
						Text: &TextContent{Body: "OK"},
					}},
				},
			}},
		}},
	}
	msgs := Normalize(event)
	if len(msgs) != 1 {
		t.Fatalf("message count = %d, want 1", len(msgs))
	}
	got := msgs[0]
	if got.Kind != KindText || got.From != "15550001111" || got.Text != "OK" {
		t.Errorf("msg = %+v", got)
	}
}

func TestNormalize_ImageWithCaption(t *testing.T) {
	event := &Event{
		Entry: []Entry{{
			Changes: []Change{{
				Value: ChangeValue{
					Messages: []ProviderMessage{{
						From:  "15550001111",
						Type:  "image",
						Image: &MediaContent{ID: "media-123", Caption: "NOK - see leak"},
					}},
				},
			}},
		}},
	}
	msgs := Normalize(event)
	if len(msgs) != 1 {
		t.Fatalf("message count = %d, want 1", len(msgs))
	}
	got := msgs[0]
	if got.Kind != KindImage || got.MediaID != "media-123" || got.Text != "NOK - see leak" {
		t.Errorf("msg = %+v", got)
	}
}

func TestNormalize_ImageWithoutCaption(t *testing.T) {
	event := &Event{
		Entry: []Entry{{
			Changes: []Change{{
				Value: ChangeValue{
					Messages: []ProviderMessage{{
						From:  "15550001111",
						Type:  "image",
						Image: &MediaContent{ID: "media-123"},
					}},
				},
			}},
		}},
	}
	msgs := Normalize(event)
	if len(msgs) != 1 {
		t.Fatalf("message count = %d, want 1", len(msgs))
	}
	if msgs[0].Text != defaultCaption {
		t.Errorf("caption = %q, want default", msgs[0].Text)
	}
}

func TestNormalize_Button(t *testing.T) {
	event := &Event{
		Entry: []Entry{{
			Changes: []Change{{
				Value: ChangeValue{
					Messages: []ProviderMessage{{
						From:   "15550001111",
						Type:   "button",
						Button: &ButtonContent{Text: "CONFIRM", Payload: "confirm-1"},
					}},
				},
			}},
		}},
	}
	msgs := Normalize(event)
	if len(msgs) != 1 {
		t.Fatalf("message count = %d, want 1", len(msgs))
	}
	if msgs[0].Kind != KindButton || msgs[0].Text != "CONFIRM" {
		t.Errorf("msg = %+v", msgs[0])
	}
}

func TestNormalize_Status(t *testing.T) {
	event := &Event{
		Entry: []Entry{{
			Changes: []Change{{
				Value: ChangeValue{
					Statuses: []ProviderStatus{{
						ID:        "wamid.1",
						Status:    "delivered",
						Recipient: "15550001111",
					}},
				},
			}},
		}},
	}
	msgs := Normalize(event)
	if len(msgs) != 1 {
		t.Fatalf("message count = %d, want 1", len(msgs))
	}
	if msgs[0].Kind != KindStatus || msgs[0].Status != "delivered" {
		t.Errorf("msg = %+v", msgs[0])
	}
}

func TestNormalize_DropsUnknownTypes(t *testing.T) {
	event := &Event{
		Entry: []Entry{{
			Changes: []Change{{
				Value: ChangeValue{
					Messages: []ProviderMessage{
						{From: "15550001111", Type: "audio"},
						{From: "15550001111", Type: "sticker"},
						{From: "15550001111", Type: "image"}, // no media content
						{From: "15550001111", Type: "text", Text: &TextContent{Body: "ok"}},
					},
				},
			}},
		}},
	}
	msgs := Normalize(event)
	if len(msgs) != 1 {
		t.Fatalf("message count = %d, want 1 (others dropped)", len(msgs))
	}
	if msgs[0].Kind != KindText {
		t.Errorf("kind = %q, want text", msgs[0].Kind)
	}
}

func TestNormalize_MultipleEntries(t *testing.T) {
	event := &Event{
		Entry: []Entry{
			{Changes: []Change{{Value: ChangeValue{
				Messages: []ProviderMessage{{From: "1", Type: "text", Text: &TextContent{Body: "a"}}},
			}}}},
			{Changes: []Change{{Value: ChangeValue{
				Messages: []ProviderMessage{{From: "2", Type: "text", Text: &TextContent{Body: "b"}}},
			}}}},
		},
	}
	msgs := Normalize(event)
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2", len(msgs))
	}
}
