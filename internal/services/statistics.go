package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"gorm.io/gorm"
)

// StatisticsUpdater folds a scored session into the user's aggregates.
type StatisticsUpdater interface {
	RecordResult(ctx context.Context, session *models.ExamSession, results models.SessionResults) error
}

type statisticsUpdater struct {
	repo repositories.Repository
}

func NewStatisticsUpdater(repo repositories.Repository) StatisticsUpdater {
	return &statisticsUpdater{repo: repo}
}

func (u *statisticsUpdater) RecordResult(ctx context.Context, session *models.ExamSession, results models.SessionResults) error {
	return u.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		stats, err := u.repo.UserStatistics().GetForUpdate(ctx, tx, session.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user statistics: %w", err)
		}

		at := time.Now()
		if session.CompletedAt != nil {
			at = *session.CompletedAt
		}
		ApplyResultToStatistics(stats, results, session.TimeSpentSeconds, at)

		if err := u.repo.UserStatistics().Save(ctx, tx, stats); err != nil {
			return fmt.Errorf("failed to save user statistics: %w", err)
		}
		return nil
	})
}

// ApplyResultToStatistics updates the running average, the best scores and the totals.
func ApplyResultToStatistics(stats *models.UserStatistics, results models.SessionResults, timeSpentSeconds int, at time.Time) {
	n := float64(stats.ScoredSessions)
	stats.AverageScore = (stats.AverageScore*n + float64(results.TotalScore)) / (n + 1)
	stats.ScoredSessions++

	if results.TotalScore > stats.BestScore {
		stats.BestScore = results.TotalScore
	}
	if results.ListeningScore > stats.BestListeningScore {
		stats.BestListeningScore = results.ListeningScore
	}
	if results.ReadingScore > stats.BestReadingScore {
		stats.BestReadingScore = results.ReadingScore
	}

	stats.TotalTimeSpentSeconds += timeSpentSeconds
	stats.LastSessionAt = timePtr(at)
}
