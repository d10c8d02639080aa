package models

import "time"

type ScoreSection string

const (
	SectionListening ScoreSection = "listening"
	SectionReading   ScoreSection = "reading"
)

const (
	MinRawCorrect  = 0
	MaxRawCorrect  = 100
	MinScaledScore = 5
	MaxScaledScore = 495
)

// ScoreTableEntry maps a raw correct count to a scaled section score.
type ScoreTableEntry struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	Section       ScoreSection `json:"section" gorm:"size:20;not null;uniqueIndex:idx_score_table_lookup,priority:1"`
	RawCorrect    int          `json:"raw_correct" gorm:"not null;uniqueIndex:idx_score_table_lookup,priority:2"`
	Version       int          `json:"version" gorm:"not null;default:1;uniqueIndex:idx_score_table_lookup,priority:3"`
	ScaledScore   int          `json:"scaled_score" gorm:"not null"`
	IsActive      bool         `json:"is_active" gorm:"not null;index"`
	EffectiveFrom time.Time    `json:"effective_from" gorm:"not null"`
	EffectiveTo   *time.Time   `json:"effective_to"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (ScoreTableEntry) TableName() string {
	return "score_table_entries"
}
