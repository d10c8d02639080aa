package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildScoreSheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []interface{}{"Section", "Raw_Correct", "Scaled_Score", "Version", "Effective_From", "Effective_To"}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		row := row
		require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func newTestImporter(store *fakeStore) *ScoreTableImporter {
	importer := NewScoreTableImporter(store, testServiceLogger())
	importer.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return importer
}

func TestScoreTableImporter_ImportsRows(t *testing.T) {
	store := newFakeStore()
	buf := buildScoreSheet(t, [][]interface{}{
		{"listening", "50", "255", "2", "2024-01-01", ""},
		{"Reading", "0", "5", "", "", ""},
		{"", "", "", "", "", ""},
	})

	result, err := newTestImporter(store).ImportFromExcel(context.Background(), buf, "")
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.ImportedRows)
	require.Len(t, store.scores, 2)

	listening := store.scores[0]
	assert.Equal(t, models.SectionListening, listening.Section)
	assert.Equal(t, 50, listening.RawCorrect)
	assert.Equal(t, 255, listening.ScaledScore)
	assert.Equal(t, 2, listening.Version)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), listening.EffectiveFrom)
	assert.Nil(t, listening.EffectiveTo)

	reading := store.scores[1]
	assert.Equal(t, models.SectionReading, reading.Section)
	assert.Equal(t, 1, reading.Version)
	assert.True(t, reading.IsActive)

	score, found, err := NewScoreTable(store.ScoreTable()).Lookup(context.Background(), models.SectionListening, 50, time.Now())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 255, score)
}

func TestScoreTableImporter_RejectsInvalidSheet(t *testing.T) {
	store := newFakeStore()
	buf := buildScoreSheet(t, [][]interface{}{
		{"listening", "50", "255", "1", "", ""},
		{"speaking", "101", "600", "x", "yesterday", ""},
		{"listening", "50", "260", "1", "", ""},
	})

	result, err := newTestImporter(store).ImportFromExcel(context.Background(), buf, "")
	require.NoError(t, err)

	assert.Zero(t, result.ImportedRows)
	assert.Equal(t, 1, result.ValidRows)
	assert.Empty(t, store.scores)

	columns := make(map[string]int)
	for _, e := range result.Errors {
		columns[e.Column]++
	}
	assert.Equal(t, map[string]int{
		"section": 1, "raw_correct": 2, "scaled_score": 1, "version": 1, "effective_from": 1,
	}, columns)
}

func TestScoreTableImporter_RequiresHeaderAndRows(t *testing.T) {
	store := newFakeStore()

	_, err := newTestImporter(store).ImportFromExcel(context.Background(), buildScoreSheet(t, nil), "")
	assert.True(t, IsValidation(err))

	_, err = newTestImporter(store).ImportFromExcel(context.Background(), bytes.NewBufferString("not a workbook"), "")
	assert.Error(t, err)
}
