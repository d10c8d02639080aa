package models

import (
	"time"

	"gorm.io/datatypes"
)

type AnswerChoice string

const (
	ChoiceA    AnswerChoice = "A"
	ChoiceB    AnswerChoice = "B"
	ChoiceC    AnswerChoice = "C"
	ChoiceD    AnswerChoice = "D"
	ChoiceNone AnswerChoice = ""
)

func (c AnswerChoice) IsValid() bool {
	switch c {
	case ChoiceA, ChoiceB, ChoiceC, ChoiceD, ChoiceNone:
		return true
	}
	return false
}

// AnswerRecord is one answer within a session, keyed by QuestionID.
type AnswerRecord struct {
	QuestionID           uint         `json:"question_id"`
	PartNumber           int          `json:"part_number"`
	QuestionNumber       int          `json:"question_number"`
	GlobalQuestionNumber int          `json:"global_question_number"`
	SelectedAnswer       AnswerChoice `json:"selected_answer"`
	IsCorrect            bool         `json:"is_correct"`
	IsSkipped            bool         `json:"is_skipped"`
	IsFlagged            bool         `json:"is_flagged"`
	TimeSpentSeconds     int          `json:"time_spent"`
	AnsweredAt           *time.Time   `json:"answered_at,omitempty"`
}

// AnswerLedger holds every answer record of a session in a single row.
type AnswerLedger struct {
	SessionID uint                              `json:"session_id" gorm:"primaryKey"`
	UserID    uint                              `json:"user_id" gorm:"not null;index"`
	Answers   datatypes.JSONSlice[AnswerRecord] `json:"answers" gorm:"type:jsonb"`
	CreatedAt time.Time                         `json:"created_at"`
	UpdatedAt time.Time                         `json:"updated_at"`
}

func (AnswerLedger) TableName() string {
	return "answer_ledgers"
}

func (l *AnswerLedger) AnsweredCount() int {
	count := 0
	for _, r := range l.Answers {
		if !r.IsSkipped {
			count++
		}
	}
	return count
}
