package interpret

import (
	"context"
	"strings"
)

// DefaultNOKRemarks is recorded when an operator reports NOK with no detail.
const DefaultNOKRemarks = "Issue reported"

// Fallback is the deterministic keyword interpreter. It never fails, so it
// terminates every interpretation chain. Unparseable input defaults to NOK:
// in a maintenance context, silently treating an unreadable reply as a pass
// is the worse failure mode.
type Fallback struct{}

// Interpret classifies a message using keyword rules alone.
func (Fallback) Interpret(_ context.Context, req Request) (*Response, error) {
	return Keywords(req.Message), nil
}

// Keywords classifies a message using deterministic keyword rules. It is a
// pure function so the rules can be tested independently of any engine or
// session state.
func Keywords(message string) *Response {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	switch {
	case lower == "ok" || lower == "okay" ||
		strings.HasPrefix(lower, "ok ") || strings.HasPrefix(lower, "ok-"):
		return &Response{Status: StatusOK, Confidence: 95}

	case strings.HasPrefix(lower, "nok"):
		remarks := strings.TrimSpace(trimmed[3:])
		remarks = strings.TrimSpace(strings.TrimLeft(remarks, "-:"))
		if remarks == "" {
			remarks = DefaultNOKRemarks
		}
		return &Response{Status: StatusNOK, Remarks: remarks, Confidence: 95}

	case containsAny(lower, "complete", "done", "good", "pass") ||
		lower == "yes" || lower == "y":
		return &Response{Status: StatusOK, Confidence: 80}

	case containsAny(lower, "fail", "issue", "problem", "broken", "not") ||
		lower == "no" || lower == "n":
		return &Response{Status: StatusNOK, Remarks: trimmed, Confidence: 75}

	default:
		return &Response{Status: StatusNOK, Remarks: trimmed, Confidence: 40}
	}
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
