package services

import (
	"math"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
)

// TimeEvent is a lifecycle event that moves a session's clock.
type TimeEvent string

const (
	TimePause    TimeEvent = "pause"
	TimeResume   TimeEvent = "resume"
	TimeAnswer   TimeEvent = "answer"
	TimeFinalize TimeEvent = "finalize"
)

// AdvanceClock applies event at now and returns the updated session. The input is not modified.
//
// When the event runs into the hard expiry or the time limit, the returned session is
// already in timeout and the error is ErrSessionExpired or ErrTimeLimitExceeded; the
// caller must persist it before surfacing the error. Any other error leaves the
// returned session equal to the input.
func AdvanceClock(event TimeEvent, session models.ExamSession, now time.Time) (models.ExamSession, error) {
	switch event {
	case TimePause:
		return applyPause(session, now)
	case TimeResume:
		return applyResume(session, now)
	case TimeAnswer:
		return applyAnswer(session, now)
	case TimeFinalize:
		return applyFinalize(session, now)
	}
	return session, ErrInvalidSessionState
}

// ForcesTimeout reports whether err came with a timeout transition.
func ForcesTimeout(err error) bool {
	return IsExpired(err) || IsTimeExceeded(err)
}

// HasExpired reports whether the hard expiry has passed.
func HasExpired(session models.ExamSession, now time.Time) bool {
	return now.After(session.ExpiresAt)
}

// ActiveSegmentSeconds is the active time since the session was started or last resumed.
// Paused and terminal sessions accrue nothing.
func ActiveSegmentSeconds(session models.ExamSession, now time.Time) int {
	if session.Status != models.SessionStarted && session.Status != models.SessionInProgress {
		return 0
	}
	from := session.StartedAt
	if session.ResumedAt != nil {
		from = *session.ResumedAt
	}
	return secondsBetween(from, now)
}

// RemainingSeconds returns nil for unlimited sessions. While paused the snapshot taken
// at pause time is returned as is.
func RemainingSeconds(session models.ExamSession, now time.Time) *int {
	if !session.Config.HasTimeLimit() {
		return nil
	}
	if session.Status == models.SessionPaused && session.Progress.TimeRemainingSeconds != nil {
		return intPtr(*session.Progress.TimeRemainingSeconds)
	}
	remaining := session.Config.TimeLimitSeconds() - (session.TimeSpentSeconds + ActiveSegmentSeconds(session, now))
	if remaining < 0 {
		remaining = 0
	}
	return intPtr(remaining)
}

func applyPause(s models.ExamSession, now time.Time) (models.ExamSession, error) {
	if s.Status != models.SessionStarted && s.Status != models.SessionInProgress {
		return s, ErrInvalidSessionState
	}
	if HasExpired(s, now) {
		return forceTimeout(s, now), ErrSessionExpired
	}

	s.TimeSpentSeconds += ActiveSegmentSeconds(s, now)

	if s.Config.HasTimeLimit() {
		remaining := s.Config.TimeLimitSeconds() - s.TimeSpentSeconds
		if remaining <= 0 {
			s.Progress.TimeRemainingSeconds = intPtr(0)
			return forceTimeout(s, now), ErrTimeLimitExceeded
		}
		s.Progress.TimeRemainingSeconds = intPtr(remaining)
	}

	s.Status = models.SessionPaused
	s.PausedAt = timePtr(now)
	return s, nil
}

func applyResume(s models.ExamSession, now time.Time) (models.ExamSession, error) {
	if s.Status != models.SessionPaused {
		return s, ErrInvalidSessionState
	}
	return leavePause(s, now)
}

// leavePause moves a paused session back to in-progress, checking expiry and the
// remaining time snapshot first.
func leavePause(s models.ExamSession, now time.Time) (models.ExamSession, error) {
	if HasExpired(s, now) {
		return forceTimeout(s, now), ErrSessionExpired
	}

	if s.Config.HasTimeLimit() {
		if s.Progress.TimeRemainingSeconds == nil {
			return s, ErrMissingTimeSnapshot
		}
		if *s.Progress.TimeRemainingSeconds <= 0 {
			return forceTimeout(s, now), ErrTimeLimitExceeded
		}
	}

	if s.PausedAt != nil {
		s.TotalPauseDurationSeconds += secondsBetween(*s.PausedAt, now)
	}
	s.Status = models.SessionInProgress
	s.ResumedAt = timePtr(now)
	return s, nil
}

func applyAnswer(s models.ExamSession, now time.Time) (models.ExamSession, error) {
	if !s.Status.IsLive() {
		return s, ErrInvalidSessionState
	}
	if s.Status == models.SessionPaused {
		return leavePause(s, now)
	}
	if HasExpired(s, now) {
		return forceTimeout(s, now), ErrSessionExpired
	}
	s.Status = models.SessionInProgress
	return s, nil
}

func applyFinalize(s models.ExamSession, now time.Time) (models.ExamSession, error) {
	if !s.Status.IsLive() {
		return s, ErrInvalidSessionState
	}
	if HasExpired(s, now) {
		return forceTimeout(s, now), ErrSessionExpired
	}

	s.TimeSpentSeconds += ActiveSegmentSeconds(s, now)
	if s.Config.HasTimeLimit() {
		remaining := s.Config.TimeLimitSeconds() - s.TimeSpentSeconds
		if remaining < 0 {
			remaining = 0
		}
		s.Progress.TimeRemainingSeconds = intPtr(remaining)
	}

	s.Status = models.SessionCompleted
	s.CompletedAt = timePtr(now)
	s.SubmittedAt = timePtr(now)
	return s, nil
}

func forceTimeout(s models.ExamSession, now time.Time) models.ExamSession {
	s.Status = models.SessionTimeout
	s.CompletedAt = timePtr(now)
	return s
}

// ApplyProgress recomputes the answered count and completion percentage.
func ApplyProgress(s *models.ExamSession, answeredCount int) {
	s.Progress.AnsweredCount = answeredCount
	s.Progress.CompletionPercentage = percent(answeredCount, s.Progress.TotalQuestions)
}

func secondsBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

func intPtr(v int) *int {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
