package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
)

// ScoreTable converts a raw correct count into a scaled section score.
type ScoreTable interface {
	// Lookup returns found=false when no active entry covers (section, rawCorrect) at at.
	Lookup(ctx context.Context, section models.ScoreSection, rawCorrect int, at time.Time) (score int, found bool, err error)
}

type scoreTable struct {
	repo repositories.ScoreTableRepository
}

func NewScoreTable(repo repositories.ScoreTableRepository) ScoreTable {
	return &scoreTable{repo: repo}
}

func (t *scoreTable) Lookup(ctx context.Context, section models.ScoreSection, rawCorrect int, at time.Time) (int, bool, error) {
	entry, err := t.repo.FindActive(ctx, nil, section, rawCorrect, at)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to look up score table: %w", err)
	}
	return entry.ScaledScore, true, nil
}

// ScoreEngine turns a finalized ledger into session results.
type ScoreEngine struct {
	table  ScoreTable
	logger *ServiceLogger
}

func NewScoreEngine(table ScoreTable, logger *ServiceLogger) *ScoreEngine {
	return &ScoreEngine{table: table, logger: logger}
}

// Score computes counts, accuracy and the per-part breakdown for any session, and
// scaled section scores for full tests. records must already include skipped
// entries for unanswered questions.
func (e *ScoreEngine) Score(ctx context.Context, sessionType models.SessionType, records []models.AnswerRecord, at time.Time) (models.SessionResults, error) {
	results := models.SessionResults{
		TotalQuestions: len(records),
		PartBreakdown:  make([]models.PartBreakdown, 0, models.LastPart),
	}

	parts := make(map[int]*models.PartBreakdown, models.LastPart)
	var listeningAnswered, listeningCorrect, readingAnswered, readingCorrect int

	for _, r := range records {
		pb, ok := parts[r.PartNumber]
		if !ok {
			pb = &models.PartBreakdown{PartNumber: r.PartNumber}
			parts[r.PartNumber] = pb
		}
		pb.QuestionCount++
		pb.TimeSpentSeconds += r.TimeSpentSeconds

		if r.IsSkipped {
			results.SkippedCount++
			continue
		}

		results.AnsweredCount++
		if r.IsCorrect {
			results.CorrectCount++
			pb.CorrectCount++
		}

		if models.IsListening(r.PartNumber) {
			listeningAnswered++
			if r.IsCorrect {
				listeningCorrect++
			}
		} else {
			readingAnswered++
			if r.IsCorrect {
				readingCorrect++
			}
		}
	}

	results.IncorrectCount = results.AnsweredCount - results.CorrectCount
	results.Accuracy = percent(results.CorrectCount, results.AnsweredCount)

	for part := models.FirstPart; part <= models.LastPart; part++ {
		pb, ok := parts[part]
		if !ok {
			continue
		}
		pb.Accuracy = percent(pb.CorrectCount, pb.QuestionCount)
		results.PartBreakdown = append(results.PartBreakdown, *pb)
	}

	if sessionType != models.SessionFullTest {
		return results, nil
	}

	var err error
	if listeningAnswered > 0 {
		if results.ListeningScore, err = e.scaled(ctx, models.SectionListening, listeningCorrect, at); err != nil {
			return models.SessionResults{}, err
		}
	}
	if readingAnswered > 0 {
		if results.ReadingScore, err = e.scaled(ctx, models.SectionReading, readingCorrect, at); err != nil {
			return models.SessionResults{}, err
		}
	}
	results.TotalScore = results.ListeningScore + results.ReadingScore

	return results, nil
}

// scaled treats a missing table row as 0 and reports it; an incomplete seed table
// must not fail the learner's submission.
func (e *ScoreEngine) scaled(ctx context.Context, section models.ScoreSection, rawCorrect int, at time.Time) (int, error) {
	score, found, err := e.table.Lookup(ctx, section, rawCorrect, at)
	if err != nil {
		return 0, err
	}
	if !found {
		e.logger.LogDataIntegrity(ctx, "no active score table entry",
			"section", section,
			"raw_correct", rawCorrect,
			"at", at)
		return 0, nil
	}
	return score, nil
}
