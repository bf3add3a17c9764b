// Package interpret classifies free-text operator replies into checklist
// task results.
package interpret

import "context"

// Classification statuses. UNCLEAR never persists to a task answer; the
// engine re-prompts instead.
const (
	StatusOK      = "OK"
	StatusNOK     = "NOK"
	StatusUnclear = "UNCLEAR"
)

// Request carries an operator message plus the conversational context it
// answers.
type Request struct {
	Message    string
	TaskName   string
	Criteria   string // optional verification criteria for the task
	Checklist  string
	Machine    string
	Operator   string
	SessionKey string // keys conversational continuity in the AI tier
}

// Response is the interpreter output. Confidence is 0-100.
type Response struct {
	Status     string
	Remarks    string
	Confidence int
	RawAI      string // diagnostic: unparsed AI reply, if any
}

// Interpreter classifies one operator message.
type Interpreter interface {
	Interpret(ctx context.Context, req Request) (*Response, error)
}

// SessionSeeder is an optional interface interpreters can implement to
// receive a context-setting message before the first real question.
// Seeding failures are non-fatal and must never block a conversation.
type SessionSeeder interface {
	SeedSession(ctx context.Context, sessionKey, seed string) error
}
