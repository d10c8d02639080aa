package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/pkg"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, pkg.AutoMigrate(db))
	return db
}

var sessionStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newSession(code string, userID, testID uint, status models.SessionStatus, allowReview bool) *models.ExamSession {
	return &models.ExamSession{
		SessionCode: code,
		UserID:      userID,
		TestID:      testID,
		Config: models.TestConfig{
			SessionType:      models.SessionPractice,
			SelectedParts:    []int{1, 2},
			TimeLimitMinutes: 30,
			AllowReview:      allowReview,
		},
		Status:    status,
		StartedAt: sessionStart,
		ExpiresAt: sessionStart.Add(168 * time.Hour),
		Progress:  models.SessionProgress{TotalQuestions: 31},
	}
}

func TestSessionPostgreSQL_KeepsAllowReview(t *testing.T) {
	ctx := context.Background()
	store := NewSessionPostgreSQL(newTestDB(t))

	for i, allowReview := range []bool{false, true} {
		session := newSession(fmt.Sprintf("TS-REVIEW0000%d", i), 1, uint(10+i), models.SessionStarted, allowReview)
		require.NoError(t, store.Create(ctx, nil, session))
		assert.Equal(t, allowReview, session.Config.AllowReview, "create must not rewrite the config")

		reloaded, err := store.GetByID(ctx, nil, session.ID)
		require.NoError(t, err)
		assert.Equal(t, allowReview, reloaded.Config.AllowReview)
		assert.Equal(t, []int{1, 2}, []int(reloaded.Config.SelectedParts))
		assert.Equal(t, 30, reloaded.Config.TimeLimitMinutes)
	}
}

func TestSessionPostgreSQL_OneLiveSessionPerTest(t *testing.T) {
	ctx := context.Background()
	store := NewSessionPostgreSQL(newTestDB(t))

	first := newSession("TS-LIVE000001", 3, 20, models.SessionInProgress, true)
	require.NoError(t, store.Create(ctx, nil, first))

	err := store.Create(ctx, nil, newSession("TS-LIVE000002", 3, 20, models.SessionStarted, true))
	require.Error(t, err)
	assert.True(t, repositories.IsUniqueViolation(err))

	// finished sessions do not count
	first.Status = models.SessionCompleted
	require.NoError(t, store.Update(ctx, nil, first))
	require.NoError(t, store.Create(ctx, nil, newSession("TS-LIVE000003", 3, 20, models.SessionStarted, true)))

	live, err := store.HasLiveSession(ctx, nil, 3, 20)
	require.NoError(t, err)
	assert.True(t, live)
}

func TestUserStatisticsPostgreSQL_GetForUpdate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		stats, err := repo.UserStatistics().GetForUpdate(ctx, tx, 5)
		require.NoError(t, err)
		assert.Equal(t, uint(5), stats.UserID)
		assert.Zero(t, stats.ScoredSessions)

		stats.ScoredSessions = 1
		stats.BestScore = 450
		return repo.UserStatistics().Save(ctx, tx, stats)
	}))

	// an existing row is returned as is
	require.NoError(t, repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		stats, err := repo.UserStatistics().GetForUpdate(ctx, tx, 5)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ScoredSessions)
		assert.Equal(t, 450, stats.BestScore)
		return nil
	}))
}

func TestStatisticsUpdater_AccumulatesInStore(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	updater := services.NewStatisticsUpdater(repo)

	completed := sessionStart.Add(time.Hour)
	session := &models.ExamSession{UserID: 8, TimeSpentSeconds: 1200, CompletedAt: &completed}

	require.NoError(t, updater.RecordResult(ctx, session, models.SessionResults{TotalScore: 600, ListeningScore: 300, ReadingScore: 300}))
	require.NoError(t, updater.RecordResult(ctx, session, models.SessionResults{TotalScore: 800, ListeningScore: 450, ReadingScore: 350}))

	stats, err := repo.UserStatistics().GetByUser(ctx, nil, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ScoredSessions)
	assert.InDelta(t, 700.0, stats.AverageScore, 0.0001)
	assert.Equal(t, 800, stats.BestScore)
	assert.Equal(t, 450, stats.BestListeningScore)
	assert.Equal(t, 2400, stats.TotalTimeSpentSeconds)
}
