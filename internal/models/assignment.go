package models

import "time"

// Assignment statuses.
const (
	AssignmentPending   = "pending"
	AssignmentSent      = "sent"
	AssignmentCompleted = "completed"
	AssignmentOverdue   = "overdue"
)

// ChecklistAssignment is a dispatched instruction for a specific operator to
// complete a specific checklist template on a specific machine.
type ChecklistAssignment struct {
	ID         uint       `gorm:"primaryKey;autoIncrement"`
	TemplateID uint       `gorm:"not null;index"`
	MachineID  uint       `gorm:"not null;index"`
	OperatorID uint       `gorm:"not null;index"`
	Status     string     `gorm:"size:16;default:pending;index"`
	DueAt      *time.Time `gorm:"index"`
	SentAt     *time.Time
	// RespondedAt is stamped when the operator's confirmed submission lands.
	RespondedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Template ChecklistTemplate `gorm:"foreignKey:TemplateID"`
	Machine  Machine           `gorm:"foreignKey:MachineID"`
	Operator Operator          `gorm:"foreignKey:OperatorID"`
}
