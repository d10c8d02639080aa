package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"gorm.io/gorm"
)

type UserStatisticsRepository interface {
	GetByUser(ctx context.Context, tx *gorm.DB, userID uint) (*models.UserStatistics, error)
	// GetForUpdate creates the user's row when missing and returns it locked for the transaction.
	GetForUpdate(ctx context.Context, tx *gorm.DB, userID uint) (*models.UserStatistics, error)
	Save(ctx context.Context, tx *gorm.DB, stats *models.UserStatistics) error
}
