package conversation

import "strings"

// Answer kinds produced by strict parsing.
const (
	answerOK      = "OK"
	answerNOK     = "NOK"
	answerUnknown = ""
)

// parsedAnswer is the result of strict OK/NOK parsing of an inbound reply.
type parsedAnswer struct {
	Kind    string // answerOK, answerNOK, or answerUnknown
	Remarks string
}

// parseStrict classifies a reply by the OK/NOK wire convention alone. The
// text is matched uppercase-trimmed; remarks are whatever follows "NOK" and
// an optional separator. Remarks stay empty for a bare "NOK" — the engine
// records the failure and lets the operator elaborate with a follow-up
// photo or the next checklist.
func parseStrict(text string) parsedAnswer {
	trimmed := strings.TrimSpace(text)
	upper := strings.ToUpper(trimmed)

	switch {
	case upper == "OK" || strings.HasPrefix(upper, "OK ") || strings.HasPrefix(upper, "OK-") || strings.HasPrefix(upper, "OK:"):
		return parsedAnswer{Kind: answerOK}

	case strings.HasPrefix(upper, "NOK"):
		remarks := strings.TrimSpace(trimmed[3:])
		remarks = strings.TrimSpace(strings.TrimLeft(remarks, "-:"))
		return parsedAnswer{Kind: answerNOK, Remarks: remarks}

	default:
		return parsedAnswer{Kind: answerUnknown}
	}
}

// Confirmation verdicts.
const (
	confirmYes     = "yes"
	confirmNo      = "no"
	confirmUnknown = "unknown"
)

// parseConfirmation classifies a reply in the awaiting-confirmation state.
func parseConfirmation(text string) string {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "CONFIRM", "YES", "SUBMIT":
		return confirmYes
	case "CANCEL", "NO":
		return confirmNo
	default:
		return confirmUnknown
	}
}
