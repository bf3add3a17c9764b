// Package transport abstracts the outbound WhatsApp messaging capability.
package transport

import "context"

// Transport is the interface the conversation engine uses to reach an
// operator. Implementations handle one messaging provider; failures are
// returned as errors so callers can degrade gracefully rather than stall
// the conversation.
type Transport interface {
	// SendText delivers a plain text message to a phone number.
	SendText(ctx context.Context, phoneNumber, message string) error

	// SendTemplate delivers a pre-approved template message. Parameters
	// fill the template's body placeholders in order.
	SendTemplate(ctx context.Context, phoneNumber, templateName, languageCode string, parameters []string) error

	// DownloadMedia fetches inbound media by provider media ID and stores
	// it locally, returning the local path.
	DownloadMedia(ctx context.Context, mediaID string) (string, error)
}
