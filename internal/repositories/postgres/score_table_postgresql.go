package postgres

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScoreTablePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewScoreTablePostgreSQL(db *gorm.DB) repositories.ScoreTableRepository {
	return &ScoreTablePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (s ScoreTablePostgreSQL) FindActive(ctx context.Context, tx *gorm.DB, section models.ScoreSection, rawCorrect int, at time.Time) (*models.ScoreTableEntry, error) {
	db := s.helpers.getDB(tx)
	var entry models.ScoreTableEntry
	if err := db.WithContext(ctx).
		Where("section = ? AND raw_correct = ? AND is_active = ?", section, rawCorrect, true).
		Where("effective_from <= ?", at).
		Where("effective_to IS NULL OR effective_to > ?", at).
		Order("version DESC").
		First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s ScoreTablePostgreSQL) UpsertEntries(ctx context.Context, tx *gorm.DB, entries []*models.ScoreTableEntry) error {
	if len(entries) == 0 {
		return nil
	}
	db := s.helpers.getDB(tx)
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "section"}, {Name: "raw_correct"}, {Name: "version"}},
			DoUpdates: clause.AssignmentColumns([]string{"scaled_score", "is_active", "effective_from", "effective_to", "updated_at"}),
		}).
		CreateInBatches(entries, 100).Error
}
