package database

import (
	"fmt"
	"log/slog"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"gorm.io/gorm"
)

// Migrations returns the ordered schema migrations. IDs are never reused.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20250301_create_tracking_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.TrackedEmail{},
					&models.EmailOpen{},
					&models.CampaignPerformance{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("email_opens", "email_tracking", "campaign_performance")
			},
		},
		{
			ID: "20250302_create_participants",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Participant{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("participants")
			},
		},
		{
			ID: "20250303_create_messages_and_reply_log",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Message{}, &models.ReplyLog{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("reply_log", "messages")
			},
		},
	}
}

// Migrate applies every pending migration
func Migrate(db *gorm.DB) error {
	slog.Info("Running database migrations...")

	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Database migrations completed successfully")
	return nil
}

// RollbackLast reverts the most recently applied migration
func RollbackLast(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	if err := m.RollbackLast(); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}
