package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// sessionEvents publishes lifecycle events after the owning transaction committed.
// A failed publish is logged and never reaches the caller.
type sessionEvents struct {
	publisher events.EventPublisher
	logger    *ServiceLogger
}

func newSessionEvents(publisher events.EventPublisher, logger *ServiceLogger) *sessionEvents {
	return &sessionEvents{publisher: publisher, logger: logger}
}

func (e *sessionEvents) publish(ctx context.Context, eventType events.EventType, sessionID uint, at time.Time, data interface{}) {
	if e.publisher == nil {
		return
	}
	event := events.NewSessionEvent(eventType, sessionID, at, data)
	if err := e.publisher.PublishSessionEvent(ctx, event); err != nil {
		e.logger.Error(ctx, "failed to publish session event",
			"event_type", eventType,
			"event_id", event.ID,
			"session_id", sessionID,
			"error", err)
	}
}

func (e *sessionEvents) started(ctx context.Context, s *models.ExamSession) {
	e.publish(ctx, events.EventSessionStarted, s.ID, s.StartedAt, events.SessionStartedData{
		SessionID:        s.ID,
		SessionCode:      s.SessionCode,
		UserID:           s.UserID,
		TestID:           s.TestID,
		SessionType:      string(s.Config.SessionType),
		SelectedParts:    s.Config.SelectedParts,
		TotalQuestions:   s.Progress.TotalQuestions,
		TimeLimitMinutes: s.Config.TimeLimitMinutes,
		StartedAt:        s.StartedAt,
		ExpiresAt:        s.ExpiresAt,
	})
}

func (e *sessionEvents) paused(ctx context.Context, s *models.ExamSession, at time.Time) {
	e.publish(ctx, events.EventSessionPaused, s.ID, at, events.SessionPausedData{
		SessionID:            s.ID,
		UserID:               s.UserID,
		TimeSpentSeconds:     s.TimeSpentSeconds,
		TimeRemainingSeconds: s.Progress.TimeRemainingSeconds,
		PausedAt:             at,
	})
}

func (e *sessionEvents) resumed(ctx context.Context, s *models.ExamSession, at time.Time) {
	e.publish(ctx, events.EventSessionResumed, s.ID, at, events.SessionResumedData{
		SessionID:                 s.ID,
		UserID:                    s.UserID,
		TotalPauseDurationSeconds: s.TotalPauseDurationSeconds,
		ResumedAt:                 at,
	})
}

func (e *sessionEvents) submitted(ctx context.Context, s *models.ExamSession, results models.SessionResults, at time.Time) {
	e.publish(ctx, events.EventSessionSubmitted, s.ID, at, events.SessionSubmittedData{
		SessionID:        s.ID,
		UserID:           s.UserID,
		TestID:           s.TestID,
		SessionType:      string(s.Config.SessionType),
		CorrectCount:     results.CorrectCount,
		AnsweredCount:    results.AnsweredCount,
		Accuracy:         results.Accuracy,
		ListeningScore:   results.ListeningScore,
		ReadingScore:     results.ReadingScore,
		TotalScore:       results.TotalScore,
		TimeSpentSeconds: s.TimeSpentSeconds,
		SubmittedAt:      at,
	})
}

func (e *sessionEvents) timedOut(ctx context.Context, s *models.ExamSession, cause error, at time.Time) {
	reason := "time_limit"
	if IsExpired(cause) {
		reason = "expired"
	}
	e.publish(ctx, events.EventSessionTimedOut, s.ID, at, events.SessionTimedOutData{
		SessionID: s.ID,
		UserID:    s.UserID,
		TestID:    s.TestID,
		Reason:    reason,
		TimedOut:  at,
	})
}
