package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"gorm.io/gorm"
)

// AnswerLedgerRepository stores one ledger row per session.
type AnswerLedgerRepository interface {
	Create(ctx context.Context, tx *gorm.DB, ledger *models.AnswerLedger) error
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID uint) (*models.AnswerLedger, error)
	Save(ctx context.Context, tx *gorm.DB, ledger *models.AnswerLedger) error
}
