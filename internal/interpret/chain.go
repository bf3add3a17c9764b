package interpret

import (
	"context"
	"log"
)

// TwoTier tries the primary interpreter and falls back to the deterministic
// tier on any failure — network error, malformed reply, missing credentials.
// A nil primary runs on the fallback alone, so a deployment without an AI
// key degrades silently rather than refusing to start.
type TwoTier struct {
	Primary  Interpreter
	Fallback Interpreter
}

// NewTwoTier builds a TwoTier over an optional primary.
func NewTwoTier(primary Interpreter) *TwoTier {
	return &TwoTier{Primary: primary, Fallback: Fallback{}}
}

// Interpret never returns an error: interpreter failure is recovered here,
// not surfaced to the conversation.
func (t *TwoTier) Interpret(ctx context.Context, req Request) (*Response, error) {
	if t.Primary != nil {
		resp, err := t.Primary.Interpret(ctx, req)
		if err == nil {
			return resp, nil
		}
		log.Printf("interpret: primary tier failed, using fallback: %v", err)
	}
	fb := t.Fallback
	if fb == nil {
		fb = Fallback{}
	}
	return fb.Interpret(ctx, req)
}

// SeedSession forwards session seeding to the primary tier when it supports
// it. A missing or non-seeding primary is not an error.
func (t *TwoTier) SeedSession(ctx context.Context, sessionKey, seed string) error {
	seeder, ok := t.Primary.(SessionSeeder)
	if !ok {
		return nil
	}
	return seeder.SeedSession(ctx, sessionKey, seed)
}
