package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockScoreTable struct {
	mock.Mock
}

func (m *mockScoreTable) Lookup(ctx context.Context, section models.ScoreSection, rawCorrect int, at time.Time) (int, bool, error) {
	args := m.Called(ctx, section, rawCorrect, at)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func record(part int, answered, correct bool, timeSpent int) models.AnswerRecord {
	r := models.AnswerRecord{PartNumber: part, TimeSpentSeconds: timeSpent, IsSkipped: !answered, IsCorrect: correct}
	if answered {
		r.SelectedAnswer = models.ChoiceA
	}
	return r
}

func TestScoreEngine_FullTest(t *testing.T) {
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	table := &mockScoreTable{}
	table.On("Lookup", mock.Anything, models.SectionListening, 2, at).Return(60, true, nil).Once()
	table.On("Lookup", mock.Anything, models.SectionReading, 1, at).Return(15, true, nil).Once()

	engine := NewScoreEngine(table, testServiceLogger())
	results, err := engine.Score(context.Background(), models.SessionFullTest, []models.AnswerRecord{
		record(1, true, true, 10),
		record(1, true, false, 5),
		record(3, true, true, 20),
		record(5, true, true, 7),
		record(7, false, false, 0),
		record(7, true, false, 3),
	}, at)
	require.NoError(t, err)

	assert.Equal(t, 6, results.TotalQuestions)
	assert.Equal(t, 5, results.AnsweredCount)
	assert.Equal(t, 3, results.CorrectCount)
	assert.Equal(t, 2, results.IncorrectCount)
	assert.Equal(t, 1, results.SkippedCount)
	assert.Equal(t, 60, results.Accuracy)
	assert.Equal(t, 60, results.ListeningScore)
	assert.Equal(t, 15, results.ReadingScore)
	assert.Equal(t, 75, results.TotalScore)

	require.Len(t, results.PartBreakdown, 4)
	assert.Equal(t, models.PartBreakdown{PartNumber: 1, QuestionCount: 2, CorrectCount: 1, Accuracy: 50, TimeSpentSeconds: 15}, results.PartBreakdown[0])
	assert.Equal(t, models.PartBreakdown{PartNumber: 7, QuestionCount: 2, CorrectCount: 0, Accuracy: 0, TimeSpentSeconds: 3}, results.PartBreakdown[3])
	table.AssertExpectations(t)
}

func TestScoreEngine_SkipsEmptySide(t *testing.T) {
	table := &mockScoreTable{}
	table.On("Lookup", mock.Anything, models.SectionListening, 0, mock.Anything).Return(5, true, nil).Once()

	engine := NewScoreEngine(table, testServiceLogger())
	results, err := engine.Score(context.Background(), models.SessionFullTest, []models.AnswerRecord{
		record(2, true, false, 0),
		record(6, false, false, 0),
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 5, results.ListeningScore)
	assert.Zero(t, results.ReadingScore)
	assert.Equal(t, 5, results.TotalScore)
	table.AssertNotCalled(t, "Lookup", mock.Anything, models.SectionReading, mock.Anything, mock.Anything)
}

func TestScoreEngine_MissingEntryScoresZero(t *testing.T) {
	table := &mockScoreTable{}
	table.On("Lookup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(0, false, nil)

	engine := NewScoreEngine(table, testServiceLogger())
	results, err := engine.Score(context.Background(), models.SessionFullTest, []models.AnswerRecord{
		record(1, true, true, 0),
		record(5, true, true, 0),
	}, time.Now())
	require.NoError(t, err)

	assert.Zero(t, results.TotalScore)
	assert.Equal(t, 100, results.Accuracy)
}

func TestScoreEngine_LookupErrorFails(t *testing.T) {
	table := &mockScoreTable{}
	table.On("Lookup", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(0, false, errors.New("connection reset"))

	engine := NewScoreEngine(table, testServiceLogger())
	_, err := engine.Score(context.Background(), models.SessionFullTest, []models.AnswerRecord{record(1, true, true, 0)}, time.Now())
	assert.Error(t, err)
}

func TestScoreEngine_PracticeAndEmpty(t *testing.T) {
	table := &mockScoreTable{}
	engine := NewScoreEngine(table, testServiceLogger())

	results, err := engine.Score(context.Background(), models.SessionPractice, []models.AnswerRecord{
		record(1, true, true, 0),
		record(1, true, true, 0),
		record(2, true, false, 0),
	}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 67, results.Accuracy)
	assert.Zero(t, results.TotalScore)

	empty, err := engine.Score(context.Background(), models.SessionFullTest, nil, time.Now())
	require.NoError(t, err)
	assert.Zero(t, empty.Accuracy)
	assert.Zero(t, empty.TotalScore)
	assert.Empty(t, empty.PartBreakdown)

	table.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScoreTable_Lookup(t *testing.T) {
	store := newFakeStore()
	store.addScore(models.SectionReading, 40, 180, 1)
	store.addScore(models.SectionReading, 40, 190, 3)
	store.scores = append(store.scores, models.ScoreTableEntry{
		Section: models.SectionReading, RawCorrect: 40, ScaledScore: 400, Version: 9,
		IsActive: false, EffectiveFrom: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	table := NewScoreTable(store.ScoreTable())

	score, found, err := table.Lookup(context.Background(), models.SectionReading, 40, time.Now())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 190, score)

	_, found, err = table.Lookup(context.Background(), models.SectionListening, 40, time.Now())
	require.NoError(t, err)
	assert.False(t, found)
}
