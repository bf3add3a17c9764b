package interpret

import (
	"context"
	"fmt"
	"testing"
)

// stubInterpreter returns a fixed response or error.
type stubInterpreter struct {
	resp  *Response
	err   error
	calls int
}

func (s *stubInterpreter) Interpret(context.Context, Request) (*Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func TestTwoTier_PrimarySucceeds(t *testing.T) {
	primary := &stubInterpreter{resp: &Response{Status: StatusOK, Confidence: 90}}
	tier := NewTwoTier(primary)

	resp, err := tier.Interpret(context.Background(), Request{Message: "looks broken"})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if resp.Status != StatusOK || resp.Confidence != 90 {
		t.Errorf("resp = %+v, want primary verdict", resp)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}
}

func TestTwoTier_FallsBackOnError(t *testing.T) {
	primary := &stubInterpreter{err: fmt.Errorf("backend down")}
	tier := NewTwoTier(primary)

	resp, err := tier.Interpret(context.Background(), Request{Message: "NOK - leak"})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if resp.Status != StatusNOK || resp.Remarks != "leak" {
		t.Errorf("resp = %+v, want keyword verdict", resp)
	}
}

func TestTwoTier_NilPrimary(t *testing.T) {
	tier := NewTwoTier(nil)

	resp, err := tier.Interpret(context.Background(), Request{Message: "ok"})
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if resp.Status != StatusOK {
		t.Errorf("status = %q, want OK", resp.Status)
	}
}

func TestTwoTier_SeedSessionForwards(t *testing.T) {
	chats := &mockChats{reply: "Understood."}
	g := newTestGemini(t, chats)
	tier := NewTwoTier(g)

	if err := tier.SeedSession(context.Background(), "session-1", "context"); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if len(chats.history) != 1 {
		t.Errorf("sends = %d, want 1", len(chats.history))
	}
}

func TestTwoTier_SeedSessionNonSeedingPrimary(t *testing.T) {
	tier := NewTwoTier(&stubInterpreter{resp: &Response{Status: StatusOK}})

	if err := tier.SeedSession(context.Background(), "session-1", "context"); err != nil {
		t.Errorf("seed session: %v", err)
	}
}
