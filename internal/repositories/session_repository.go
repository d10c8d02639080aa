package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"gorm.io/gorm"
)

// SessionRepository is the authoritative store for exam sessions.
type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error)
	// GetByIDForUpdate locks the row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error)
	Update(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error

	// GetLiveSession returns the user's started/in-progress/paused session for a test.
	GetLiveSession(ctx context.Context, tx *gorm.DB, userID, testID uint) (*models.ExamSession, error)
	HasLiveSession(ctx context.Context, tx *gorm.DB, userID, testID uint) (bool, error)

	ListByUser(ctx context.Context, tx *gorm.DB, userID uint, filters SessionFilters) ([]*models.ExamSession, int64, error)
	GetUserSessionStats(ctx context.Context, tx *gorm.DB, userID uint) (*UserSessionStats, error)
}
