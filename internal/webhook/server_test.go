package webhook

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opsline/checkline/internal/conversation"
)

// mockHandler captures incoming messages on a channel so tests can wait for
// the asynchronous processing goroutine.
type mockHandler struct {
	received chan conversation.Incoming
	err      error
}

func newMockHandler() *mockHandler {
	return &mockHandler{received: make(chan conversation.Incoming, 8)}
}

func (m *mockHandler) HandleIncoming(_ context.Context, msg conversation.Incoming) error {
	m.received <- msg
	return m.err
}

func (m *mockHandler) wait(t *testing.T) conversation.Incoming {
	t.Helper()
	select {
	case msg := <-m.received:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return conversation.Incoming{}
	}
}

// mockDownloader maps media IDs to local paths.
type mockDownloader struct {
	paths map[string]string
	err   error
}

func (m *mockDownloader) DownloadMedia(_ context.Context, mediaID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	path, ok := m.paths[mediaID]
	if !ok {
		return "", fmt.Errorf("unknown media %q", mediaID)
	}
	return path, nil
}

func setupServer(t *testing.T, handler MessageHandler, media MediaDownloader) *httptest.Server {
	t.Helper()
	router, err := NewRouter(StartOpts{
		Handler:     handler,
		Media:       media,
		VerifyToken: "secret-token",
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// --- NewRouter tests ---

func TestNewRouter_NilHandler(t *testing.T) {
	_, err := NewRouter(StartOpts{VerifyToken: "x"})
	if err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestNewRouter_EmptyVerifyToken(t *testing.T) {
	_, err := NewRouter(StartOpts{Handler: newMockHandler()})
	if err == nil {
		t.Fatal("expected error for empty verify token")
	}
}

// --- verification handshake tests ---

func TestHandleVerify_ValidToken(t *testing.T) {
	srv := setupServer(t, newMockHandler(), nil)

	res, err := http.Get(srv.URL + "/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}
	body := make([]byte, 16)
	n, _ := res.Body.Read(body)
	if got := string(body[:n]); got != "12345" {
		t.Errorf("challenge echo = %q, want 12345", got)
	}
}

func TestHandleVerify_WrongToken(t *testing.T) {
	srv := setupServer(t, newMockHandler(), nil)

	res, err := http.Get(srv.URL + "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", res.StatusCode)
	}
}

func TestHandleVerify_MissingMode(t *testing.T) {
	srv := setupServer(t, newMockHandler(), nil)

	res, err := http.Get(srv.URL + "/webhook?hub.verify_token=secret-token")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", res.StatusCode)
	}
}

// --- event ingestion tests ---

func postEvent(t *testing.T, url, payload string) *http.Response {
	t.Helper()
	res, err := http.Post(url+"/webhook", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

const textEventPayload = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "entry-1",
		"changes": [{
			"field": "messages",
			"value": {
				"messages": [{
					"from": "15550001111",
					"id": "wamid.1",
					"type": "text",
					"text": {"body": "OK"}
				}]
			}
		}]
	}]
}`

func TestHandleEvent_TextMessage(t *testing.T) {
	handler := newMockHandler()
	srv := setupServer(t, handler, nil)

	res := postEvent(t, srv.URL, textEventPayload)
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}

	got := handler.wait(t)
	if got.PhoneNumber != "15550001111" || got.Text != "OK" {
		t.Errorf("incoming = %+v", got)
	}
}

func TestHandleEvent_ImageDownloadsMedia(t *testing.T) {
	handler := newMockHandler()
	media := &mockDownloader{paths: map[string]string{"media-9": "media/photo.jpg"}}
	srv := setupServer(t, handler, media)

	res := postEvent(t, srv.URL, `{
		"entry": [{"changes": [{"value": {"messages": [{
			"from": "15550001111",
			"type": "image",
			"image": {"id": "media-9", "caption": "NOK - leak"}
		}]}}]}]
	}`)
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}

	got := handler.wait(t)
	if got.ImageURL != "media/photo.jpg" {
		t.Errorf("image url = %q, want downloaded path", got.ImageURL)
	}
	if got.Text != "NOK - leak" {
		t.Errorf("text = %q, want caption", got.Text)
	}
}

func TestHandleEvent_MediaFailureStillProcessesCaption(t *testing.T) {
	handler := newMockHandler()
	media := &mockDownloader{err: fmt.Errorf("provider unavailable")}
	srv := setupServer(t, handler, media)

	res := postEvent(t, srv.URL, `{
		"entry": [{"changes": [{"value": {"messages": [{
			"from": "15550001111",
			"type": "image",
			"image": {"id": "media-9", "caption": "NOK - leak"}
		}]}}]}]
	}`)
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}

	got := handler.wait(t)
	if got.ImageURL != "" {
		t.Errorf("image url = %q, want empty after download failure", got.ImageURL)
	}
	if got.Text != "NOK - leak" {
		t.Errorf("text = %q, want caption", got.Text)
	}
}

func TestHandleEvent_MalformedJSON(t *testing.T) {
	srv := setupServer(t, newMockHandler(), nil)

	res := postEvent(t, srv.URL, `{"entry": [`)
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 even for malformed payloads", res.StatusCode)
	}
}

func TestHandleEvent_HandlerErrorStillAcks(t *testing.T) {
	handler := newMockHandler()
	handler.err = fmt.Errorf("engine unavailable")
	srv := setupServer(t, handler, nil)

	res := postEvent(t, srv.URL, textEventPayload)
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 despite handler failure", res.StatusCode)
	}
	handler.wait(t)
}

func TestHealthz(t *testing.T) {
	srv := setupServer(t, newMockHandler(), nil)

	res, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}
}
