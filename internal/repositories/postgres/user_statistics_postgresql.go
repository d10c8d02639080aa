package postgres

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserStatisticsPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewUserStatisticsPostgreSQL(db *gorm.DB) repositories.UserStatisticsRepository {
	return &UserStatisticsPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (u UserStatisticsPostgreSQL) GetByUser(ctx context.Context, tx *gorm.DB, userID uint) (*models.UserStatistics, error) {
	db := u.helpers.getDB(tx)
	var stats models.UserStatistics
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (u UserStatisticsPostgreSQL) GetForUpdate(ctx context.Context, tx *gorm.DB, userID uint) (*models.UserStatistics, error) {
	db := u.helpers.getDB(tx).WithContext(ctx)

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&models.UserStatistics{UserID: userID}).Error; err != nil {
		return nil, err
	}

	var stats models.UserStatistics
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (u UserStatisticsPostgreSQL) Save(ctx context.Context, tx *gorm.DB, stats *models.UserStatistics) error {
	db := u.helpers.getDB(tx)
	return db.WithContext(ctx).Save(stats).Error
}
