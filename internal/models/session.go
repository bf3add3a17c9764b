package models

import "time"

// Session statuses. Completed and expired are terminal.
const (
	SessionActive               = "active"
	SessionAwaitingConfirmation = "awaiting_confirmation"
	SessionCompleted            = "completed"
	SessionExpired              = "expired"
)

// ConversationSession tracks one in-progress checklist traversal over
// WhatsApp. At most one active session exists per phone number at a time.
// Template, machine, and operator IDs are denormalized at creation so the
// conversation never depends on live joins.
type ConversationSession struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	PhoneNumber  string `gorm:"size:20;not null;index"`
	AssignmentID *uint  `gorm:"index"`
	SubmissionID uint   `gorm:"not null;index"`
	TemplateID   uint   `gorm:"not null"`
	MachineID    uint   `gorm:"not null"`
	OperatorID   uint   `gorm:"not null"`
	Status       string `gorm:"size:24;default:active;index"`
	// CurrentTaskIndex advances by exactly one per accepted answer.
	CurrentTaskIndex int `gorm:"not null;default:0"`
	// TotalTasks is snapshotted at session start; the task list must not
	// mutate mid-conversation.
	TotalTasks    int       `gorm:"not null"`
	LastMessageAt time.Time `gorm:"index"`
	ExpiresAt     time.Time `gorm:"index"`
	CreatedAt     time.Time
	CompletedAt   *time.Time

	Answers []SessionAnswer `gorm:"foreignKey:SessionID"`
}

// SessionAnswer is one recorded task answer within a session. Answers are
// keyed by task position and overwritten in place when an operator follows
// up (e.g. a bare photo supplementing an earlier NOK).
type SessionAnswer struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID uint   `gorm:"not null;uniqueIndex:idx_session_task"`
	TaskIndex int    `gorm:"not null;uniqueIndex:idx_session_task"`
	TaskName  string `gorm:"size:256;not null"`
	Result    string `gorm:"size:8;not null"` // OK or NOK
	Remarks   string `gorm:"type:text"`
	PhotoURL  string `gorm:"size:512"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Session ConversationSession `gorm:"foreignKey:SessionID"`
}
