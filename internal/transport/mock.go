package transport

import (
	"context"
	"fmt"
	"sync"
)

// SentMessage records one outbound message captured by the Mock.
type SentMessage struct {
	PhoneNumber  string
	Text         string
	TemplateName string
	LanguageCode string
	Parameters   []string
}

// Mock implements Transport for testing. It records every send and lets
// tests force failures or pre-configure media download results.
type Mock struct {
	mu        sync.Mutex
	sent      []SentMessage
	media     map[string]string // mediaID -> local path
	failSends bool
	mediaErr  error
}

// NewMock creates a Mock transport.
func NewMock() *Mock {
	return &Mock{media: make(map[string]string)}
}

// SendText records the message, or fails if FailSends was set.
func (m *Mock) SendText(ctx context.Context, phoneNumber, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSends {
		return fmt.Errorf("mock transport: send failed")
	}
	m.sent = append(m.sent, SentMessage{PhoneNumber: phoneNumber, Text: message})
	return nil
}

// SendTemplate records the template send, or fails if FailSends was set.
func (m *Mock) SendTemplate(ctx context.Context, phoneNumber, templateName, languageCode string, parameters []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSends {
		return fmt.Errorf("mock transport: send failed")
	}
	m.sent = append(m.sent, SentMessage{
		PhoneNumber:  phoneNumber,
		TemplateName: templateName,
		LanguageCode: languageCode,
		Parameters:   parameters,
	})
	return nil
}

// DownloadMedia returns the pre-configured path for a media ID.
func (m *Mock) DownloadMedia(ctx context.Context, mediaID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mediaErr != nil {
		return "", m.mediaErr
	}
	path, ok := m.media[mediaID]
	if !ok {
		return "", fmt.Errorf("mock transport: unknown media %q", mediaID)
	}
	return path, nil
}

// --- Test helpers ---

// SetMedia pre-configures a media download result.
func (m *Mock) SetMedia(mediaID, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.media[mediaID] = path
}

// SetMediaError forces DownloadMedia to fail.
func (m *Mock) SetMediaError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mediaErr = err
}

// FailSends makes subsequent sends return an error.
func (m *Mock) FailSends(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSends = fail
}

// LastSent returns the most recently sent message.
// Returns zero value and false if nothing has been sent.
func (m *Mock) LastSent() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentMessage{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// SentCount returns the number of messages sent.
func (m *Mock) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// AllSent returns a copy of all sent messages.
func (m *Mock) AllSent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}
