package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"gorm.io/gorm"
)

type ScoreTableRepository interface {
	// FindActive returns the highest-version active entry for (section, rawCorrect)
	// whose effective window covers at.
	FindActive(ctx context.Context, tx *gorm.DB, section models.ScoreSection, rawCorrect int, at time.Time) (*models.ScoreTableEntry, error)
	UpsertEntries(ctx context.Context, tx *gorm.DB, entries []*models.ScoreTableEntry) error
}
