package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"gorm.io/gorm"
)

// Repository groups the stores the session lifecycle works against.
// Every store method accepts an optional tx; nil means the default connection.
type Repository interface {
	Session() SessionRepository
	AnswerLedger() AnswerLedgerRepository
	Catalog() CatalogRepository
	ScoreTable() ScoreTableRepository
	UserStatistics() UserStatisticsRepository

	// WithTransaction runs fn in one database transaction. Returning an error rolls back.
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IsNotFoundError reports whether err is a missing-record error from any store.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrRecordNotFound)
}

// ErrRecordNotFound is returned by stores that are not backed by gorm.
var ErrRecordNotFound = errors.New("record not found")

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicateKey)
}

var ErrDuplicateKey = errors.New("duplicate key")

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	Status      *models.SessionStatus `json:"status"`
	TestID      *uint                 `json:"test_id"`
	SessionType *models.SessionType   `json:"session_type"`
	DateFrom    *time.Time            `json:"date_from"`
	DateTo      *time.Time            `json:"date_to"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
	SortBy      string                `json:"sort_by"`    // "created_at", "completed_at", "total_score"
	SortOrder   string                `json:"sort_order"` // "asc", "desc"
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize clamps pagination and sorting to supported values.
func (f *SessionFilters) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	switch f.SortBy {
	case "created_at", "completed_at", "total_score":
	default:
		f.SortBy = "created_at"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}

type QuestionScope struct {
	TestID uint  `json:"test_id"`
	Parts  []int `json:"parts"`
}

// ===== SHARED STATISTICS STRUCTS =====

type UserSessionStats struct {
	TotalSessions     int                          `json:"total_sessions"`
	StatusBreakdown   map[models.SessionStatus]int `json:"status_breakdown"`
	CompletedSessions int                          `json:"completed_sessions"`
}
