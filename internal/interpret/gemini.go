package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// chatService abstracts the AI chat backend, enabling test mocks. Messages
// sent with the same session key share conversational history.
type chatService interface {
	Send(ctx context.Context, sessionKey, message string) (string, error)
}

// Gemini is the AI-assisted interpreter tier. It embeds the task context in
// a prompt, asks for a structured JSON verdict, and parses whatever comes
// back. Callers are expected to wrap it in a TwoTier with a Fallback: any
// error here means "use the keyword rules instead".
type Gemini struct {
	chats chatService
}

// GeminiOpts holds parameters for creating a Gemini interpreter.
type GeminiOpts struct {
	APIKey string
	Model  string
	// For testing: inject a mock chat backend.
	Chats chatService
}

// NewGemini creates a Gemini interpreter.
func NewGemini(ctx context.Context, opts GeminiOpts) (*Gemini, error) {
	if opts.Chats != nil {
		return &Gemini{chats: opts.Chats}, nil
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("interpret: gemini: API key is required")
	}
	model := opts.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("interpret: gemini: create client: %w", err)
	}
	return &Gemini{chats: &geminiChats{client: client, model: model}}, nil
}

// Interpret classifies a message via the AI backend.
func (g *Gemini) Interpret(ctx context.Context, req Request) (*Response, error) {
	prompt := buildPrompt(req)
	reply, err := g.chats.Send(ctx, req.SessionKey, prompt)
	if err != nil {
		return nil, fmt.Errorf("interpret: gemini: %w", err)
	}
	return parseAIReply(reply, req.Message), nil
}

// SeedSession sends a context-setting message before the first question so
// follow-up interpretations share conversational state.
func (g *Gemini) SeedSession(ctx context.Context, sessionKey, seed string) error {
	if _, err := g.chats.Send(ctx, sessionKey, seed); err != nil {
		return fmt.Errorf("interpret: gemini: seed session: %w", err)
	}
	return nil
}

// buildPrompt constructs a context-rich classification prompt.
func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are interpreting a machine maintenance checklist reply from a shop-floor operator.\n")
	if req.Checklist != "" {
		fmt.Fprintf(&b, "Checklist: %s\n", req.Checklist)
	}
	if req.Machine != "" {
		fmt.Fprintf(&b, "Machine: %s\n", req.Machine)
	}
	if req.Operator != "" {
		fmt.Fprintf(&b, "Operator: %s\n", req.Operator)
	}
	fmt.Fprintf(&b, "Task: %s\n", req.TaskName)
	if req.Criteria != "" {
		fmt.Fprintf(&b, "Verification criteria: %s\n", req.Criteria)
	}
	fmt.Fprintf(&b, "Operator reply: %q\n\n", req.Message)
	b.WriteString("Decide whether the reply means the task passed (OK), failed (NOK), or is unclear.\n")
	b.WriteString(`Respond with JSON only: {"status":"OK|NOK|UNCLEAR","remarks":"...","confidence":0-100}`)
	return b.String()
}

// aiVerdict is the structured payload expected in the AI reply.
type aiVerdict struct {
	Status     string `json:"status"`
	Remarks    string `json:"remarks"`
	Confidence int    `json:"confidence"`
}

// parseAIReply extracts a verdict from the AI's reply. Preference order:
// embedded JSON payload, then keyword scan of the raw text, then UNCLEAR.
func parseAIReply(reply, original string) *Response {
	if v, ok := extractVerdict(reply); ok {
		status := strings.ToUpper(strings.TrimSpace(v.Status))
		if status == StatusOK || status == StatusNOK || status == StatusUnclear {
			conf := v.Confidence
			if conf < 0 {
				conf = 0
			}
			if conf > 100 {
				conf = 100
			}
			return &Response{Status: status, Remarks: v.Remarks, Confidence: conf, RawAI: reply}
		}
	}

	lower := strings.ToLower(reply)
	if containsAny(lower, "nok", "fail", "issue", "problem") {
		remarks := extractRemarksLine(reply)
		if remarks == "" {
			remarks = original
		}
		return &Response{Status: StatusNOK, Remarks: remarks, Confidence: 70, RawAI: reply}
	}
	if containsAny(lower, "ok", "pass", "complete") {
		return &Response{Status: StatusOK, Confidence: 70, RawAI: reply}
	}
	return &Response{Status: StatusUnclear, Confidence: 30, RawAI: reply}
}

// extractVerdict pulls the first JSON object out of the reply.
func extractVerdict(reply string) (*aiVerdict, bool) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var v aiVerdict
	if err := json.Unmarshal([]byte(reply[start:end+1]), &v); err != nil {
		return nil, false
	}
	return &v, true
}

// extractRemarksLine finds a "remarks: ..." line in free text.
func extractRemarksLine(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		lower := strings.ToLower(line)
		if idx := strings.Index(lower, "remarks:"); idx >= 0 {
			return strings.TrimSpace(line[idx+len("remarks:"):])
		}
	}
	return ""
}

// geminiChats implements chatService over the Gemini API, keeping one chat
// per session key so interpretations share history.
type geminiChats struct {
	client *genai.Client
	model  string

	mu    sync.Mutex
	chats map[string]*genai.Chat
}

// Send routes a message through the session's chat, creating it on first use.
func (g *geminiChats) Send(ctx context.Context, sessionKey, message string) (string, error) {
	chat, err := g.chatFor(ctx, sessionKey)
	if err != nil {
		return "", err
	}
	res, err := chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

// chatFor returns the chat for a session key, creating one if needed.
func (g *geminiChats) chatFor(ctx context.Context, sessionKey string) (*genai.Chat, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chats == nil {
		g.chats = make(map[string]*genai.Chat)
	}
	if chat, ok := g.chats[sessionKey]; ok {
		return chat, nil
	}
	chat, err := g.client.Chats.Create(ctx, g.model, nil, nil)
	if err != nil {
		return nil, err
	}
	g.chats[sessionKey] = chat
	return chat, nil
}
