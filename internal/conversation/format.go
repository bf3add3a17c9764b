package conversation

import (
	"fmt"
	"strings"

	"github.com/opsline/checkline/internal/models"
)

// answerInstructions is appended to every question prompt.
const answerInstructions = "Reply *OK* if the check passed, or *NOK - <details>* if it failed. You can also send a photo."

// formatQuestion builds the prompt for one checklist task. taskNum is
// 1-based for display.
func formatQuestion(taskNum, total int, name, criteria string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Task %d/%d*\n%s\n", taskNum, total, name)
	if criteria != "" {
		fmt.Fprintf(&b, "_Check: %s_\n", criteria)
	}
	b.WriteString("\n")
	b.WriteString(answerInstructions)
	return b.String()
}

// formatReminder wraps the current question with reminder framing.
func formatReminder(question string) string {
	return "⏰ *Reminder* — this checklist is still waiting on you.\n\n" + question
}

// formatSummary enumerates every answered task with a pass/fail icon,
// result, remarks, and photo indicator, followed by the CONFIRM/CANCEL
// instructions.
func formatSummary(checklistName, machineName string, answers []models.SessionAnswer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Checklist summary — %s on %s*\n\n", checklistName, machineName)
	for _, a := range answers {
		icon := "✅"
		if a.Result == "NOK" {
			icon = "❌"
		}
		fmt.Fprintf(&b, "%d. %s %s — %s", a.TaskIndex+1, icon, a.TaskName, a.Result)
		if a.Remarks != "" {
			fmt.Fprintf(&b, " (%s)", a.Remarks)
		}
		if a.PhotoURL != "" {
			b.WriteString(" 📷")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(confirmInstructions)
	return b.String()
}

// confirmInstructions is re-sent whenever a confirmation reply is not understood.
const confirmInstructions = "Reply *CONFIRM* to submit this checklist, or *CANCEL* to discard it."

// Fixed operator-facing notices. Always plain language, never an error code.
const (
	noticeNoActiveSession = "You have no active checklist right now. Please wait for a new assignment or contact your supervisor."
	noticeExpired         = "⌛ This checklist session has expired and your answers were not submitted. Please contact your supervisor for a new assignment."
	noticeInvalidAnswer   = "Sorry, I didn't understand that.\n\n" + answerInstructions
	noticeCancelled       = "Checklist cancelled — your answers were discarded. Your supervisor has been notified."
	noticeSubmitted       = "✅ Checklist submitted. Thank you!"
)
