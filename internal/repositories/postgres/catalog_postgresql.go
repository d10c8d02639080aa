package postgres

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"gorm.io/gorm"
)

type CatalogPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewCatalogPostgreSQL(db *gorm.DB) repositories.CatalogRepository {
	return &CatalogPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (c CatalogPostgreSQL) GetTest(ctx context.Context, tx *gorm.DB, testID uint) (*models.Test, error) {
	db := c.helpers.getDB(tx)
	var test models.Test
	if err := db.WithContext(ctx).First(&test, testID).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (c CatalogPostgreSQL) GetActiveQuestions(ctx context.Context, tx *gorm.DB, scope repositories.QuestionScope) ([]*models.Question, error) {
	db := c.helpers.getDB(tx)
	var questions []*models.Question
	if err := db.WithContext(ctx).
		Where("test_id = ? AND part_number IN ? AND is_active = ?", scope.TestID, scope.Parts, true).
		Order("global_question_number ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (c CatalogPostgreSQL) IncrementAttemptCount(ctx context.Context, tx *gorm.DB, testID uint) error {
	db := c.helpers.getDB(tx)
	return db.WithContext(ctx).
		Model(&models.Test{}).
		Where("id = ?", testID).
		Update("total_attempts", gorm.Expr("total_attempts + ?", 1)).Error
}

func (c CatalogPostgreSQL) IncrementCompletedCount(ctx context.Context, tx *gorm.DB, testID uint) error {
	db := c.helpers.getDB(tx)
	return db.WithContext(ctx).
		Model(&models.Test{}).
		Where("id = ?", testID).
		Update("completed_attempts", gorm.Expr("completed_attempts + ?", 1)).Error
}
