package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"knowledgehub/internal/models"
)

// Open connects to PostgreSQL and configures the pool. It does not migrate.
func Open(dsn string, level string, log *zap.Logger) (*gorm.DB, error) {
	gLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  toGormLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	log.Info("Database connection established")
	return db, nil
}

// constraints gorm tags cannot express.
var ddl = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_comments_one_accepted ON comments (post_id) WHERE is_accepted_answer`,
	`CREATE OR REPLACE FUNCTION post_versions_immutable() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'post_versions rows are append-only';
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_post_versions_immutable ON post_versions`,
	`CREATE TRIGGER trg_post_versions_immutable BEFORE UPDATE OR DELETE ON post_versions
	FOR EACH ROW EXECUTE FUNCTION post_versions_immutable()`,
}

// Migrate creates or updates the schema and seeds categories.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
		&models.ReputationRecord{},
		&models.ReputationLog{},
		&models.PostVersion{},
		&models.Follow{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply constraint: %w", err)
		}
	}
	log.Info("Database migration completed")

	return seedCategories(db, log)
}

func seedCategories(db *gorm.DB, log *zap.Logger) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	categories := []models.Category{
		{Name: "General", Description: "Questions that do not fit anywhere else"},
		{Name: "Admissions", Description: "Applications, deadlines and requirements"},
		{Name: "Funding", Description: "Scholarships, grants and fees"},
		{Name: "Careers", Description: "Jobs, internships and interviews"},
	}
	if err := db.Create(&categories).Error; err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	log.Info("Initial categories created", zap.Int("count", len(categories)))
	return nil
}

// Health pings the database.
func Health(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}
