package database

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"todoapp/internal/config"
	"todoapp/internal/database/migrations"
)

func Connect(c *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(c.DatabaseURL), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Debug("GORM connected to database")

	return db, nil
}

// Migrate applies the embedded goose migrations to the database behind db.
func Migrate(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql handle: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied")

	return nil
}

// AutoMigrate creates the schema from the models. Used for throwaway
// databases; production schemas come from Migrate.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Device{},
		&Group{},
		&GroupMember{},
		&GroupAdmin{},
		&Invitation{},
		&ToDo{},
	)
}
