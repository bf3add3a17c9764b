package webhook

import "strings"

// Kind is the closed set of normalized inbound message types. The engine's
// contract depends on this union, never on the provider wire format.
type Kind string

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindButton Kind = "button"
	KindStatus Kind = "status"
)

// Event is the provider's webhook envelope, declared down to the fields the
// normalizer reads.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one account-level entry in the envelope.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one change notification within an entry.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries the messages and delivery statuses of one change.
type ChangeValue struct {
	Messages []ProviderMessage `json:"messages"`
	Statuses []ProviderStatus  `json:"statuses"`
}

// ProviderMessage is one inbound message as the provider shapes it.
type ProviderMessage struct {
	From   string         `json:"from"`
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Text   *TextContent   `json:"text,omitempty"`
	Image  *MediaContent  `json:"image,omitempty"`
	Button *ButtonContent `json:"button,omitempty"`
}

// TextContent is the body of a text message.
type TextContent struct {
	Body string `json:"body"`
}

// MediaContent references provider-hosted media.
type MediaContent struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
	Mime    string `json:"mime_type"`
}

// ButtonContent is a tapped quick-reply button.
type ButtonContent struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// ProviderStatus is a delivery status update (delivered/read/failed).
type ProviderStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Recipient string `json:"recipient_id"`
}

// Message is one normalized inbound message.
type Message struct {
	Kind    Kind
	From    string // sender phone number
	Text    string // body, caption, or button label
	MediaID string // set for KindImage
	Status  string // set for KindStatus
}

// defaultCaption is used when an image arrives without one.
const defaultCaption = "Photo"

// Normalize flattens a provider envelope into the closed message union.
// Unknown message types are dropped.
func Normalize(event *Event) []Message {
	var out []Message
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			for _, pm := range change.Value.Messages {
				if msg, ok := normalizeMessage(pm); ok {
					out = append(out, msg)
				}
			}
			for _, st := range change.Value.Statuses {
				out = append(out, Message{
					Kind:   KindStatus,
					From:   st.Recipient,
					Status: st.Status,
				})
			}
		}
	}
	return out
}

// normalizeMessage maps one provider message to the union.
func normalizeMessage(pm ProviderMessage) (Message, bool) {
	switch pm.Type {
	case "text":
		body := ""
		if pm.Text != nil {
			body = pm.Text.Body
		}
		return Message{Kind: KindText, From: pm.From, Text: body}, true

	case "image":
		if pm.Image == nil || pm.Image.ID == "" {
			return Message{}, false
		}
		caption := strings.TrimSpace(pm.Image.Caption)
		if caption == "" {
			caption = defaultCaption
		}
		return Message{Kind: KindImage, From: pm.From, Text: caption, MediaID: pm.Image.ID}, true

	case "button":
		if pm.Button == nil {
			return Message{}, false
		}
		// A tapped button reads exactly like a typed reply.
		return Message{Kind: KindButton, From: pm.From, Text: pm.Button.Text}, true

	default:
		return Message{}, false
	}
}
