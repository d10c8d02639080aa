package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"gorm.io/gorm"
)

// CatalogRepository reads tests and questions. It never writes catalog content;
// the only mutations are the attempt counters kept on the test row.
type CatalogRepository interface {
	GetTest(ctx context.Context, tx *gorm.DB, testID uint) (*models.Test, error)
	GetActiveQuestions(ctx context.Context, tx *gorm.DB, scope QuestionScope) ([]*models.Question, error)

	IncrementAttemptCount(ctx context.Context, tx *gorm.DB, testID uint) error
	IncrementCompletedCount(ctx context.Context, tx *gorm.DB, testID uint) error
}
