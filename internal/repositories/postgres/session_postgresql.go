package postgres

import (
	"context"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (s SessionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error {
	db := s.helpers.getDB(tx)
	return db.WithContext(ctx).Create(session).Error
}

func (s SessionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error) {
	db := s.helpers.getDB(tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s SessionPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamSession, error) {
	db := s.helpers.getDB(tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s SessionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, session *models.ExamSession) error {
	db := s.helpers.getDB(tx)
	return db.WithContext(ctx).Save(session).Error
}

func (s SessionPostgreSQL) GetLiveSession(ctx context.Context, tx *gorm.DB, userID, testID uint) (*models.ExamSession, error) {
	db := s.helpers.getDB(tx)
	var session models.ExamSession
	if err := db.WithContext(ctx).
		Where("user_id = ? AND test_id = ? AND status IN ?", userID, testID, models.LiveStatuses).
		Order("created_at DESC").
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s SessionPostgreSQL) HasLiveSession(ctx context.Context, tx *gorm.DB, userID, testID uint) (bool, error) {
	db := s.helpers.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("user_id = ? AND test_id = ? AND status IN ?", userID, testID, models.LiveStatuses).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s SessionPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID uint, filters repositories.SessionFilters) ([]*models.ExamSession, int64, error) {
	db := s.helpers.getDB(tx)
	var sessions []*models.ExamSession
	var total int64

	filters.Normalize()

	// apply filter first
	query := db.WithContext(ctx).Model(&models.ExamSession{}).Where("user_id = ?", userID)
	query = s.helpers.ApplySessionFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = s.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (s SessionPostgreSQL) GetUserSessionStats(ctx context.Context, tx *gorm.DB, userID uint) (*repositories.UserSessionStats, error) {
	db := s.helpers.getDB(tx)

	var rows []struct {
		Status models.SessionStatus
		Count  int
	}
	if err := db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &repositories.UserSessionStats{
		StatusBreakdown: make(map[models.SessionStatus]int, len(rows)),
	}
	for _, row := range rows {
		stats.StatusBreakdown[row.Status] = row.Count
		stats.TotalSessions += row.Count
	}
	stats.CompletedSessions = stats.StatusBreakdown[models.SessionCompleted]

	return stats, nil
}
