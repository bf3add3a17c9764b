// Package whatsapp implements the transport.Transport interface against the
// WhatsApp Cloud (Graph) API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// defaultTimeout bounds every outbound API call so a slow provider can
// never stall a conversation turn.
const defaultTimeout = 30 * time.Second

// httpDoer abstracts the HTTP client, enabling test mocks.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client sends messages and downloads media via the WhatsApp Cloud API.
type Client struct {
	apiBase       string
	phoneNumberID string
	accessToken   string
	mediaDir      string
	http          httpDoer
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	APIBase       string // e.g. "https://graph.facebook.com/v19.0"
	PhoneNumberID string // the business phone number ID
	AccessToken   string // Cloud API bearer token
	MediaDir      string // directory for downloaded media
	// For testing: inject a mock HTTP client.
	HTTPClient httpDoer
}

// New creates a WhatsApp Cloud API client.
func New(opts ClientOpts) (*Client, error) {
	if opts.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp: phone number ID is required")
	}
	if opts.AccessToken == "" {
		return nil, fmt.Errorf("whatsapp: access token is required")
	}
	apiBase := strings.TrimSuffix(opts.APIBase, "/")
	if apiBase == "" {
		apiBase = "https://graph.facebook.com/v19.0"
	}
	mediaDir := opts.MediaDir
	if mediaDir == "" {
		mediaDir = "media"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiBase:       apiBase,
		phoneNumberID: opts.PhoneNumberID,
		accessToken:   opts.AccessToken,
		mediaDir:      mediaDir,
		http:          httpClient,
	}, nil
}

// textPayload is the Cloud API envelope for a plain text message.
type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText delivers a plain text message.
func (c *Client) SendText(ctx context.Context, phoneNumber, message string) error {
	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               phoneNumber,
		Type:             "text",
		Text:             textBody{Body: message},
	}
	return c.postMessage(ctx, payload)
}

// templatePayload is the Cloud API envelope for a template message.
type templatePayload struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         templateBody `json:"template"`
}

type templateBody struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTemplate delivers a pre-approved template message with positional
// body parameters.
func (c *Client) SendTemplate(ctx context.Context, phoneNumber, templateName, languageCode string, parameters []string) error {
	if languageCode == "" {
		languageCode = "en"
	}
	tmpl := templateBody{
		Name:     templateName,
		Language: templateLanguage{Code: languageCode},
	}
	if len(parameters) > 0 {
		params := make([]templateParameter, len(parameters))
		for i, p := range parameters {
			params[i] = templateParameter{Type: "text", Text: p}
		}
		tmpl.Components = []templateComponent{{Type: "body", Parameters: params}}
	}
	payload := templatePayload{
		MessagingProduct: "whatsapp",
		To:               phoneNumber,
		Type:             "template",
		Template:         tmpl,
	}
	return c.postMessage(ctx, payload)
}

// postMessage POSTs a message payload to the Cloud API messages endpoint.
func (c *Client) postMessage(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.apiBase, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp: send: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// mediaInfo is the Cloud API response for a media ID lookup.
type mediaInfo struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// DownloadMedia resolves a media ID to its download URL, then streams the
// payload to a collision-resistant file under the media directory.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) (string, error) {
	info, err := c.lookupMedia(ctx, mediaID)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return "", fmt.Errorf("whatsapp: build media request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp: download media %s: %w", mediaID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whatsapp: download media %s: status %d", mediaID, resp.StatusCode)
	}

	if err := os.MkdirAll(c.mediaDir, 0o755); err != nil {
		return "", fmt.Errorf("whatsapp: create media dir: %w", err)
	}

	name := mediaFilename(info.MimeType)
	path := filepath.Join(c.mediaDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("whatsapp: create media file: %w", err)
	}

	// Stream rather than buffer: media can be multi-megabyte photos.
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("whatsapp: write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("whatsapp: close media file: %w", err)
	}

	log.Printf("whatsapp: downloaded media %s to %s", mediaID, path)
	return path, nil
}

// lookupMedia fetches the download URL and mime type for a media ID.
func (c *Client) lookupMedia(ctx context.Context, mediaID string) (*mediaInfo, error) {
	url := fmt.Sprintf("%s/%s", c.apiBase, mediaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: build media lookup: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: lookup media %s: %w", mediaID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whatsapp: lookup media %s: status %d", mediaID, resp.StatusCode)
	}

	var info mediaInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("whatsapp: decode media lookup: %w", err)
	}
	if info.URL == "" {
		return nil, fmt.Errorf("whatsapp: media %s has no download URL", mediaID)
	}
	return &info, nil
}

// extRe restricts extensions to safe filename characters.
var extRe = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

// mediaFilename builds a collision-resistant filename: timestamp, random
// token, and an extension sanitized from the mime type.
func mediaFilename(mimeType string) string {
	ext := "bin"
	if idx := strings.Index(mimeType, "/"); idx >= 0 {
		candidate := mimeType[idx+1:]
		// Strip mime parameters like "; codecs=...".
		if semi := strings.Index(candidate, ";"); semi >= 0 {
			candidate = candidate[:semi]
		}
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "jpeg" {
			candidate = "jpg"
		}
		if extRe.MatchString(candidate) {
			ext = candidate
		}
	}
	return fmt.Sprintf("%s-%s.%s", time.Now().UTC().Format("20060102T150405"), uuid.NewString(), ext)
}
