package services

import (
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/jinzhu/copier"
)

// ===== REQUESTS =====

type StartSessionRequest struct {
	TestID           uint               `json:"test_id" validate:"required"`
	SessionType      models.SessionType `json:"session_type" validate:"required,session_type"`
	SelectedParts    []int              `json:"selected_parts" validate:"required_if=SessionType practice,omitempty,max=7,unique_parts,dive,part_number"`
	TimeLimitMinutes int                `json:"time_limit" validate:"gte=0,lte=300"`
	AllowReview      *bool              `json:"allow_review"`
}

type AnswerInput struct {
	QuestionID     uint                `json:"question_id" validate:"required"`
	SelectedAnswer models.AnswerChoice `json:"selected_answer" validate:"answer_choice"`
	TimeSpent      int                 `json:"time_spent" validate:"gte=0,lte=86400"`
	IsFlagged      bool                `json:"is_flagged"`
}

type SubmitAnswersRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,min=1,max=200,dive"`
}

func (r *SubmitAnswersRequest) incoming() []IncomingAnswer {
	out := make([]IncomingAnswer, len(r.Answers))
	for i, a := range r.Answers {
		out[i] = IncomingAnswer{
			QuestionID:       a.QuestionID,
			SelectedAnswer:   a.SelectedAnswer,
			TimeSpentSeconds: a.TimeSpent,
			IsFlagged:        a.IsFlagged,
		}
	}
	return out
}

type ListSessionsRequest struct {
	Status      *models.SessionStatus `form:"status" validate:"omitempty,session_status"`
	TestID      *uint                 `form:"test_id"`
	SessionType *models.SessionType   `form:"session_type" validate:"omitempty,session_type"`
	DateFrom    *time.Time            `form:"date_from"`
	DateTo      *time.Time            `form:"date_to"`
	SortBy      string                `form:"sort_by" validate:"omitempty,oneof=created_at completed_at total_score"`
	SortOrder   string                `form:"sort_order" validate:"omitempty,oneof=asc desc"`
	Page        int                   `form:"page" validate:"gte=0"`
	Size        int                   `form:"size" validate:"gte=0,lte=100"`
}

// ===== RESPONSES =====

// SessionView is the external representation of a session.
type SessionView struct {
	ID                        uint                   `json:"id"`
	SessionCode               string                 `json:"session_code"`
	UserID                    uint                   `json:"user_id"`
	TestID                    uint                   `json:"test_id"`
	Config                    models.TestConfig      `json:"test_config"`
	Status                    models.SessionStatus   `json:"status"`
	StartedAt                 time.Time              `json:"started_at"`
	PausedAt                  *time.Time             `json:"paused_at,omitempty"`
	ResumedAt                 *time.Time             `json:"resumed_at,omitempty"`
	CompletedAt               *time.Time             `json:"completed_at,omitempty"`
	SubmittedAt               *time.Time             `json:"submitted_at,omitempty"`
	ExpiresAt                 time.Time              `json:"expires_at"`
	TimeSpentSeconds          int                    `json:"time_spent"`
	TotalPauseDurationSeconds int                    `json:"total_pause_duration"`
	Progress                  models.SessionProgress `json:"progress"`
	Results                   *models.SessionResults `json:"results,omitempty" copier:"-"`
	CreatedAt                 time.Time              `json:"created_at"`
}

// NewSessionView maps a session to its view. progress.time_remaining is computed at now.
func NewSessionView(session *models.ExamSession, now time.Time) (*SessionView, error) {
	var view SessionView
	if err := copier.Copy(&view, session); err != nil {
		return nil, err
	}
	view.Results = session.ResultsData()
	if session.Status.IsLive() {
		view.Progress.TimeRemainingSeconds = RemainingSeconds(*session, now)
	}
	return &view, nil
}

// QuestionView is a question with the learner's current answer merged in. The
// answer key is never part of it.
type QuestionView struct {
	ID                   uint                `json:"id"`
	PartNumber           int                 `json:"part_number"`
	QuestionNumber       int                 `json:"question_number"`
	GlobalQuestionNumber int                 `json:"global_question_number"`
	QuestionText         string              `json:"question_text"`
	Choices              []string            `json:"choices"`
	SelectedAnswer       models.AnswerChoice `json:"selected_answer"`
	IsFlagged            bool                `json:"is_flagged"`
	TimeSpentSeconds     int                 `json:"time_spent"`
	Answered             bool                `json:"answered"`
}

type SessionDetailResponse struct {
	Session   *SessionView    `json:"session"`
	Questions []*QuestionView `json:"questions"`
}

type SubmitAnswersResponse struct {
	AcceptedCount      int                  `json:"accepted_count"`
	DroppedQuestionIDs []uint               `json:"dropped_question_ids,omitempty"`
	AnsweredCount      int                  `json:"answered_count"`
	Status             models.SessionStatus `json:"status"`
}

type ResultAnswerView struct {
	QuestionID           uint                `json:"question_id"`
	PartNumber           int                 `json:"part_number"`
	QuestionNumber       int                 `json:"question_number"`
	GlobalQuestionNumber int                 `json:"global_question_number"`
	SelectedAnswer       models.AnswerChoice `json:"selected_answer"`
	CorrectAnswer        models.AnswerChoice `json:"correct_answer,omitempty"`
	IsCorrect            bool                `json:"is_correct"`
	IsSkipped            bool                `json:"is_skipped"`
	IsFlagged            bool                `json:"is_flagged"`
	TimeSpentSeconds     int                 `json:"time_spent"`
}

type SessionResultsResponse struct {
	Session *SessionView        `json:"session"`
	Answers []*ResultAnswerView `json:"answers"`
}

type SessionListResponse struct {
	Sessions []*SessionView `json:"sessions"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	Size     int            `json:"size"`
}

type UserStatisticsResponse struct {
	UserID                uint                         `json:"user_id"`
	TotalSessions         int                          `json:"total_sessions"`
	CompletedSessions     int                          `json:"completed_sessions"`
	StatusBreakdown       map[models.SessionStatus]int `json:"status_breakdown"`
	ScoredSessions        int                          `json:"scored_sessions"`
	AverageScore          float64                      `json:"average_score"`
	BestScore             int                          `json:"best_score"`
	BestListeningScore    int                          `json:"best_listening_score"`
	BestReadingScore      int                          `json:"best_reading_score"`
	TotalTimeSpentSeconds int                          `json:"total_time_spent"`
	LastSessionAt         *time.Time                   `json:"last_session_at,omitempty"`
}
