package conversation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/opsline/checkline/internal/models"
)

// SweepExpired marks every stale live session expired, notifying the
// operator and supervisor for each. This is the best-effort background
// companion to the lazy expiry check on inbound messages; neither depends
// on the other having run. Returns the number of sessions expired.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	var stale []models.ConversationSession
	err := e.db.Where("status IN ? AND expires_at < ?",
		[]string{models.SessionActive, models.SessionAwaitingConfirmation}, time.Now()).
		Find(&stale).Error
	if err != nil {
		return 0, fmt.Errorf("conversation: sweep query: %w", err)
	}

	expired := 0
	for i := range stale {
		session := &stale[i]
		lock := e.phoneLock(session.PhoneNumber)
		lock.Lock()
		err := e.expireSession(ctx, session, "timed out")
		lock.Unlock()
		if err != nil {
			log.Printf("conversation: sweep: %v", err)
			continue
		}
		expired++
	}
	if expired > 0 {
		log.Printf("conversation: sweep expired %d session(s)", expired)
	}
	return expired, nil
}

// RemindIdle re-sends the current question to active sessions with no
// inbound traffic for at least the idle duration. Returns the number of
// reminders sent.
func (e *Engine) RemindIdle(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := time.Now().Add(-idle)
	var idleSessions []models.ConversationSession
	err := e.db.Where("status = ? AND last_message_at < ? AND expires_at > ?",
		models.SessionActive, cutoff, time.Now()).
		Find(&idleSessions).Error
	if err != nil {
		return 0, fmt.Errorf("conversation: reminder query: %w", err)
	}

	sent := 0
	for _, session := range idleSessions {
		if err := e.Remind(ctx, session.ID); err != nil {
			log.Printf("conversation: remind idle: %v", err)
			continue
		}
		sent++
	}
	return sent, nil
}
