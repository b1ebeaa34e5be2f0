package database

import (
	"fmt"

	"shelfsight/server/internal/config"
	logging "shelfsight/server/internal/logging"
	"shelfsight/server/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured database and runs the migrations.
func Open(conf config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch conf.Driver {
	case "", "postgres":
		dialector = postgres.Open(conf.DSN())
	case "sqlite":
		dialector = sqlite.Open(conf.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormZapLogger(log, logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", conf.Driver, err)
	}
	log.Info("Database connection established successfully.", zap.String("driver", conf.Driver))

	if err := runMigrations(db, log); err != nil {
		return nil, err
	}
	return db, nil
}

// Init opens the database and stores it in DB.
func Init(conf config.DatabaseConfig, log *zap.Logger) error {
	db, err := Open(conf, log)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

func runMigrations(db *gorm.DB, log *zap.Logger) error {
	// AutoMigrate creates tables, columns and foreign keys but not the
	// ranking index, which is handled separately.
	err := db.AutoMigrate(
		&models.Analysis{},
		&models.ShelfInteraction{},
		&models.ShelfFunnel{},
	)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("Database migrations completed successfully.")

	rankingIndex := `CREATE INDEX IF NOT EXISTS idx_shelf_interactions_ranking ON shelf_interactions (analysis_id, interaction_count DESC);`
	if err := db.Exec(rankingIndex).Error; err != nil {
		return fmt.Errorf("create ranking index: %w", err)
	}
	log.Info("Custom indexes ensured successfully.")
	return nil
}
