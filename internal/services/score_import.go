package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var scoreTableColumns = []string{"section", "raw_correct", "scaled_score", "version", "effective_from", "effective_to"}

// ImportRowError describes one rejected cell of a score table sheet.
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

type ScoreImportResult struct {
	Sheet        string           `json:"sheet"`
	TotalRows    int              `json:"total_rows"`
	ValidRows    int              `json:"valid_rows"`
	ImportedRows int              `json:"imported_rows"`
	Errors       []ImportRowError `json:"errors,omitempty"`
}

// ScoreTableImporter loads score table entries from a spreadsheet. A sheet with any
// invalid row is rejected as a whole; a half-loaded table would score sessions
// against a mix of versions.
type ScoreTableImporter struct {
	repo   repositories.Repository
	logger *ServiceLogger
	now    func() time.Time
}

func NewScoreTableImporter(repo repositories.Repository, logger *ServiceLogger) *ScoreTableImporter {
	return &ScoreTableImporter{repo: repo, logger: logger, now: time.Now}
}

// ImportFromExcel reads sheet (the first sheet when empty) and upserts every row
// in a single transaction.
func (i *ScoreTableImporter) ImportFromExcel(ctx context.Context, reader io.Reader, sheet string) (*ScoreImportResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, NewValidationError("file", "Excel file has no sheets", nil)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, NewValidationError("file", "Excel must have header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int, len(rows[0]))
	for idx, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = idx
	}
	for _, col := range scoreTableColumns[:3] {
		if _, ok := headerMap[col]; !ok {
			return nil, NewValidationError("file", "missing required column "+col, rows[0])
		}
	}

	result := &ScoreImportResult{Sheet: sheet, TotalRows: len(rows) - 1}
	entries := make([]*models.ScoreTableEntry, 0, len(rows)-1)
	seen := make(map[string]int, len(rows)-1)
	importedAt := i.now().UTC()

	for idx, row := range rows[1:] {
		rowNum := idx + 2
		if isBlankRow(row) {
			result.TotalRows--
			continue
		}
		entry, rowErrors := parseScoreRow(row, headerMap, rowNum, importedAt)
		if len(rowErrors) == 0 {
			key := fmt.Sprintf("%s/%d/%d", entry.Section, entry.RawCorrect, entry.Version)
			if first, dup := seen[key]; dup {
				rowErrors = append(rowErrors, ImportRowError{
					Row: rowNum, Column: "raw_correct",
					Message: fmt.Sprintf("duplicates row %d for the same section and version", first),
					Value:   strconv.Itoa(entry.RawCorrect),
				})
			} else {
				seen[key] = rowNum
			}
		}
		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			continue
		}
		entries = append(entries, entry)
		result.ValidRows++
	}

	if len(result.Errors) > 0 {
		i.logger.Warn(ctx, "score table import rejected",
			"sheet", sheet,
			"total_rows", result.TotalRows,
			"error_count", len(result.Errors))
		return result, nil
	}

	err = i.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		return i.repo.ScoreTable().UpsertEntries(ctx, tx, entries)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save score table: %w", err)
	}
	result.ImportedRows = len(entries)

	i.logger.Info(ctx, "score table import completed",
		"sheet", sheet,
		"imported_rows", result.ImportedRows)

	return result, nil
}

func parseScoreRow(record []string, headerMap map[string]int, rowNum int, importedAt time.Time) (*models.ScoreTableEntry, []ImportRowError) {
	var errs []ImportRowError

	getColumn := func(name string) string {
		if index, exists := headerMap[name]; exists && index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}
	fail := func(column, message, value string) {
		errs = append(errs, ImportRowError{Row: rowNum, Column: column, Message: message, Value: value})
	}

	entry := &models.ScoreTableEntry{
		Version:       1,
		IsActive:      true,
		EffectiveFrom: importedAt,
	}

	section := models.ScoreSection(strings.ToLower(getColumn("section")))
	switch section {
	case models.SectionListening, models.SectionReading:
		entry.Section = section
	default:
		fail("section", "must be listening or reading", string(section))
	}

	raw := getColumn("raw_correct")
	if n, err := strconv.Atoi(raw); err != nil || n < models.MinRawCorrect || n > models.MaxRawCorrect {
		fail("raw_correct", fmt.Sprintf("must be an integer between %d and %d", models.MinRawCorrect, models.MaxRawCorrect), raw)
	} else {
		entry.RawCorrect = n
	}

	scaled := getColumn("scaled_score")
	if n, err := strconv.Atoi(scaled); err != nil || n < models.MinScaledScore || n > models.MaxScaledScore {
		fail("scaled_score", fmt.Sprintf("must be an integer between %d and %d", models.MinScaledScore, models.MaxScaledScore), scaled)
	} else {
		entry.ScaledScore = n
	}

	if v := getColumn("version"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n < 1 {
			fail("version", "must be a positive integer", v)
		} else {
			entry.Version = n
		}
	}

	if v := getColumn("effective_from"); v != "" {
		if t, err := parseImportDate(v); err != nil {
			fail("effective_from", "must be a date (YYYY-MM-DD or RFC 3339)", v)
		} else {
			entry.EffectiveFrom = t
		}
	}

	if v := getColumn("effective_to"); v != "" {
		if t, err := parseImportDate(v); err != nil {
			fail("effective_to", "must be a date (YYYY-MM-DD or RFC 3339)", v)
		} else if !t.After(entry.EffectiveFrom) {
			fail("effective_to", "must be after effective_from", v)
		} else {
			entry.EffectiveTo = &t
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return entry, nil
}

func parseImportDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", value)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
