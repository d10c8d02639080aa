package models

import (
	"time"

	"gorm.io/datatypes"
)

type Test struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Title             string    `json:"title" gorm:"not null;size:200"`
	Description       *string   `json:"description" gorm:"type:text"`
	IsActive          bool      `json:"is_active" gorm:"not null;index"`
	TotalAttempts     int       `json:"total_attempts" gorm:"default:0"`
	CompletedAttempts int       `json:"completed_attempts" gorm:"default:0"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Question struct {
	ID                   uint                        `json:"id" gorm:"primaryKey"`
	TestID               uint                        `json:"test_id" gorm:"not null;index:idx_questions_test_part,priority:1"`
	PartNumber           int                         `json:"part_number" gorm:"not null;index:idx_questions_test_part,priority:2"`
	QuestionNumber       int                         `json:"question_number" gorm:"not null"`
	GlobalQuestionNumber int                         `json:"global_question_number" gorm:"not null"`
	QuestionText         string                      `json:"question_text" gorm:"type:text"`
	Choices              datatypes.JSONSlice[string] `json:"choices" gorm:"type:jsonb"`
	CorrectAnswer        AnswerChoice                `json:"-" gorm:"size:1;not null"`
	IsActive             bool                        `json:"is_active" gorm:"not null"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// IsListening reports whether the part belongs to the listening section.
func IsListening(partNumber int) bool {
	return partNumber <= LastListeningPart
}
