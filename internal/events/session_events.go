package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the lifecycle transitions published by the service
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventSessionPaused    EventType = "session.paused"
	EventSessionResumed   EventType = "session.resumed"
	EventSessionSubmitted EventType = "session.submitted"
	EventSessionTimedOut  EventType = "session.timed_out"
)

const (
	EventSource  = "exam-session-service"
	EventVersion = "1.0"
)

// SessionEvent is the envelope for every lifecycle event
type SessionEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	SessionID uint                   `json:"session_id"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type SessionStartedData struct {
	SessionID        uint      `json:"session_id"`
	SessionCode      string    `json:"session_code"`
	UserID           uint      `json:"user_id"`
	TestID           uint      `json:"test_id"`
	SessionType      string    `json:"session_type"`
	SelectedParts    []int     `json:"selected_parts"`
	TotalQuestions   int       `json:"total_questions"`
	TimeLimitMinutes int       `json:"time_limit"`
	StartedAt        time.Time `json:"started_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type SessionPausedData struct {
	SessionID            uint      `json:"session_id"`
	UserID               uint      `json:"user_id"`
	TimeSpentSeconds     int       `json:"time_spent"`
	TimeRemainingSeconds *int      `json:"time_remaining,omitempty"`
	PausedAt             time.Time `json:"paused_at"`
}

type SessionResumedData struct {
	SessionID                 uint      `json:"session_id"`
	UserID                    uint      `json:"user_id"`
	TotalPauseDurationSeconds int       `json:"total_pause_duration"`
	ResumedAt                 time.Time `json:"resumed_at"`
}

type SessionSubmittedData struct {
	SessionID        uint      `json:"session_id"`
	UserID           uint      `json:"user_id"`
	TestID           uint      `json:"test_id"`
	SessionType      string    `json:"session_type"`
	CorrectCount     int       `json:"correct_count"`
	AnsweredCount    int       `json:"answered_count"`
	Accuracy         int       `json:"accuracy"`
	ListeningScore   int       `json:"listening_score"`
	ReadingScore     int       `json:"reading_score"`
	TotalScore       int       `json:"total_score"`
	TimeSpentSeconds int       `json:"time_spent"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

type SessionTimedOutData struct {
	SessionID uint      `json:"session_id"`
	UserID    uint      `json:"user_id"`
	TestID    uint      `json:"test_id"`
	Reason    string    `json:"reason"` // "expired" or "time_limit"
	TimedOut  time.Time `json:"timed_out_at"`
}

// NewSessionEvent builds an envelope with a fresh id.
func NewSessionEvent(eventType EventType, sessionID uint, at time.Time, data interface{}) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: at,
		Source:    EventSource,
		Version:   EventVersion,
		Data:      data,
		Metadata:  make(map[string]interface{}),
	}
}
