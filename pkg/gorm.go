package pkg

import (
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/config"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.IsProduction() {
		logLevel = logger.Error
	} else {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// Unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// AutoMigrate creates the service tables plus the partial index that allows at
// most one live session per user and test.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Test{},
		&models.Question{},
		&models.ExamSession{},
		&models.AnswerLedger{},
		&models.ScoreTableEntry{},
		&models.UserStatistics{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	if err := db.Exec(liveSessionIndexSQL()).Error; err != nil {
		return fmt.Errorf("failed to create live session index: %w", err)
	}
	return nil
}

func liveSessionIndexSQL() string {
	statuses := make([]string, len(models.LiveStatuses))
	for i, status := range models.LiveStatuses {
		statuses[i] = "'" + string(status) + "'"
	}
	return fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_exam_sessions_live_per_test ON %s (user_id, test_id) WHERE status IN (%s)",
		models.ExamSession{}.TableName(), strings.Join(statuses, ", "))
}
