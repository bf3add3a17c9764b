package models

import "time"

// Machine is a piece of plant equipment that checklists run against.
type Machine struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null"`
	Code      string `gorm:"size:32;uniqueIndex"`
	Location  string `gorm:"size:128"`
	Active    bool   `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Operator is a shop-floor worker who answers checklists over WhatsApp.
// PhoneNumber is the WhatsApp channel address in E.164 digits-only form.
type Operator struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:128;not null"`
	PhoneNumber string `gorm:"size:20;uniqueIndex;not null"`
	Active      bool   `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChecklistTemplate is an ordered set of maintenance tasks for a machine class.
type ChecklistTemplate struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:128;not null"`
	Description string `gorm:"type:text"`
	Frequency   string `gorm:"size:16;default:daily"` // daily, weekly, monthly
	Active      bool   `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Tasks []TemplateTask `gorm:"foreignKey:TemplateID"`
}

// TemplateTask is one ordered checklist item within a template.
type TemplateTask struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	TemplateID uint   `gorm:"not null;index"`
	Position   int    `gorm:"not null"` // 0-based order within the template
	Name       string `gorm:"size:256;not null"`
	Criteria   string `gorm:"type:text"` // optional verification criteria
	CreatedAt  time.Time
}
