package db

import (
	"fmt"

	"github.com/opsline/checkline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Machine{},
		&models.Operator{},
		&models.ChecklistTemplate{},
		&models.TemplateTask{},
		&models.ChecklistAssignment{},
		&models.ChecklistSubmission{},
		&models.SubmissionTask{},
		&models.ConversationSession{},
		&models.SessionAnswer{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedDemo inserts a demo machine, operator, and checklist template so a
// fresh install can run a conversation end to end. Upserts on natural keys,
// so running it twice is safe.
func SeedDemo(db *gorm.DB, operatorPhone string) error {
	machine := models.Machine{
		Name:     "CNC Lathe 1",
		Code:     "CNC-01",
		Location: "Bay A",
		Active:   true,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "location", "active"}),
	}).Create(&machine).Error; err != nil {
		return fmt.Errorf("db: seed machine: %w", err)
	}

	operator := models.Operator{
		Name:        "Demo Operator",
		PhoneNumber: operatorPhone,
		Active:      true,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "active"}),
	}).Create(&operator).Error; err != nil {
		return fmt.Errorf("db: seed operator: %w", err)
	}

	var existing models.ChecklistTemplate
	err := db.Where("name = ?", "Daily Maintenance").First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return fmt.Errorf("db: check demo template: %w", err)
	}

	template := models.ChecklistTemplate{
		Name:        "Daily Maintenance",
		Description: "Start-of-shift machine checks",
		Frequency:   "daily",
		Active:      true,
		Tasks: []models.TemplateTask{
			{Position: 0, Name: "Check oil level", Criteria: "Sight glass between MIN and MAX"},
			{Position: 1, Name: "Test emergency stop", Criteria: "Spindle halts within 2 seconds"},
			{Position: 2, Name: "Inspect coolant lines", Criteria: "No visible leaks or kinks"},
		},
	}
	if err := db.Create(&template).Error; err != nil {
		return fmt.Errorf("db: seed template: %w", err)
	}
	return nil
}
