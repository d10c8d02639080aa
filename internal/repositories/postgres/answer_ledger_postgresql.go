package postgres

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"gorm.io/gorm"
)

type AnswerLedgerPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAnswerLedgerPostgreSQL(db *gorm.DB) repositories.AnswerLedgerRepository {
	return &AnswerLedgerPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a AnswerLedgerPostgreSQL) Create(ctx context.Context, tx *gorm.DB, ledger *models.AnswerLedger) error {
	db := a.helpers.getDB(tx)
	if ledger.Answers == nil {
		ledger.Answers = make([]models.AnswerRecord, 0)
	}
	return db.WithContext(ctx).Create(ledger).Error
}

func (a AnswerLedgerPostgreSQL) GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) (*models.AnswerLedger, error) {
	db := a.helpers.getDB(tx)
	var ledger models.AnswerLedger
	if err := db.WithContext(ctx).Where("session_id = ?", sessionID).First(&ledger).Error; err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (a AnswerLedgerPostgreSQL) Save(ctx context.Context, tx *gorm.DB, ledger *models.AnswerLedger) error {
	db := a.helpers.getDB(tx)
	return db.WithContext(ctx).Save(ledger).Error
}
