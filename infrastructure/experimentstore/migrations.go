package experimentstore

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: experiments table with its natural-key, date and model indexes
		{
			ID: "001_experiments",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&ExperimentRow{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("experiments")
			},
		},
	})
	return m.Migrate()
}
