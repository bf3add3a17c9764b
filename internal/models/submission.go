package models

import "time"

// Submission statuses.
const (
	SubmissionPending   = "pending"
	SubmissionCompleted = "completed"
)

// ChecklistSubmission is the durable record of one checklist run. It is
// created in "pending" state when a conversation starts and becomes
// "completed" only on confirmed finalization.
type ChecklistSubmission struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	TemplateID  uint   `gorm:"not null;index"`
	MachineID   uint   `gorm:"not null;index"`
	OperatorID  uint   `gorm:"not null;index"`
	Status      string `gorm:"size:16;default:pending;index"`
	SubmittedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Tasks []SubmissionTask `gorm:"foreignKey:SubmissionID"`
}

// SubmissionTask is one finalized task result within a completed submission.
type SubmissionTask struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	SubmissionID uint   `gorm:"not null;index"`
	Position     int    `gorm:"not null"`
	TaskName     string `gorm:"size:256;not null"`
	Result       string `gorm:"size:8;not null"` // OK or NOK
	Remarks      string `gorm:"type:text"`
	PhotoURL     string `gorm:"size:512"`
	CreatedAt    time.Time
}
