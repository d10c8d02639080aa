package models

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionStarted    SessionStatus = "started"
	SessionInProgress SessionStatus = "in-progress"
	SessionPaused     SessionStatus = "paused"
	SessionCompleted  SessionStatus = "completed"
	SessionTimeout    SessionStatus = "timeout"
)

// LiveStatuses are the statuses a session can still be worked on from.
var LiveStatuses = []SessionStatus{SessionStarted, SessionInProgress, SessionPaused}

func (s SessionStatus) IsLive() bool {
	return s == SessionStarted || s == SessionInProgress || s == SessionPaused
}

type SessionType string

const (
	SessionFullTest SessionType = "full-test"
	SessionPractice SessionType = "practice"
)

const (
	FirstPart         = 1
	LastPart          = 7
	LastListeningPart = 4
)

// AllParts returns every part number of a full test.
func AllParts() []int {
	parts := make([]int, 0, LastPart)
	for p := FirstPart; p <= LastPart; p++ {
		parts = append(parts, p)
	}
	return parts
}

// TestConfig is fixed when the session is created.
type TestConfig struct {
	SessionType      SessionType              `json:"session_type" gorm:"size:20;not null"`
	SelectedParts    datatypes.JSONSlice[int] `json:"selected_parts" gorm:"type:jsonb"`
	TimeLimitMinutes int                      `json:"time_limit" gorm:"default:0"` // 0 = unlimited
	AllowReview      bool                     `json:"allow_review" gorm:"not null"`
}

func (c TestConfig) HasTimeLimit() bool {
	return c.TimeLimitMinutes > 0
}

func (c TestConfig) TimeLimitSeconds() int {
	return c.TimeLimitMinutes * 60
}

type SessionProgress struct {
	TotalQuestions       int  `json:"total_questions" gorm:"not null"`
	AnsweredCount        int  `json:"answered_count" gorm:"default:0"`
	CompletionPercentage int  `json:"completion_percentage" gorm:"default:0"`
	TimeRemainingSeconds *int `json:"time_remaining,omitempty"` // snapshot taken at the last pause
}

type PartBreakdown struct {
	PartNumber       int `json:"part_number"`
	QuestionCount    int `json:"question_count"`
	CorrectCount     int `json:"correct_count"`
	Accuracy         int `json:"accuracy"`
	TimeSpentSeconds int `json:"time_spent"`
}

type SessionResults struct {
	TotalQuestions int             `json:"total_questions"`
	AnsweredCount  int             `json:"answered_count"`
	CorrectCount   int             `json:"correct_count"`
	IncorrectCount int             `json:"incorrect_count"`
	SkippedCount   int             `json:"skipped_count"`
	Accuracy       int             `json:"accuracy"`
	ListeningScore int             `json:"listening_score"`
	ReadingScore   int             `json:"reading_score"`
	TotalScore     int             `json:"total_score"`
	PartBreakdown  []PartBreakdown `json:"part_breakdown"`
}

// ExamSession is one attempt by one user at one test.
type ExamSession struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	SessionCode string `json:"session_code" gorm:"size:32;uniqueIndex;not null"`
	UserID      uint   `json:"user_id" gorm:"not null;index:idx_exam_sessions_user_created,priority:1;index:idx_exam_sessions_user_test,priority:1"`
	TestID      uint   `json:"test_id" gorm:"not null;index:idx_exam_sessions_user_test,priority:2"`

	Config TestConfig    `json:"test_config" gorm:"embedded;embeddedPrefix:config_"`
	Status SessionStatus `json:"status" gorm:"size:20;not null;index"`

	// Timing
	StartedAt                 time.Time  `json:"started_at" gorm:"not null"`
	PausedAt                  *time.Time `json:"paused_at"`
	ResumedAt                 *time.Time `json:"resumed_at"`
	CompletedAt               *time.Time `json:"completed_at"`
	SubmittedAt               *time.Time `json:"submitted_at"`
	ExpiresAt                 time.Time  `json:"expires_at" gorm:"not null"`
	TimeSpentSeconds          int        `json:"time_spent" gorm:"default:0"`
	TotalPauseDurationSeconds int        `json:"total_pause_duration" gorm:"default:0"`

	Progress SessionProgress                     `json:"progress" gorm:"embedded;embeddedPrefix:progress_"`
	Results  *datatypes.JSONType[SessionResults] `json:"results,omitempty" gorm:"type:jsonb"`

	// Copied from Results for sorting history by score.
	TotalScore int `json:"-" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_exam_sessions_user_created,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ExamSession) TableName() string {
	return "exam_sessions"
}

// ResultsData returns the stored results, or nil when the session is not completed.
func (s *ExamSession) ResultsData() *SessionResults {
	if s.Results == nil {
		return nil
	}
	data := s.Results.Data()
	return &data
}

func (s *ExamSession) SetResults(results SessionResults) {
	jt := datatypes.NewJSONType(results)
	s.Results = &jt
	s.TotalScore = results.TotalScore
}

// PartsInScope resolves the parts a session covers.
func (s *ExamSession) PartsInScope() []int {
	if s.Config.SessionType == SessionFullTest {
		return AllParts()
	}
	return []int(s.Config.SelectedParts)
}
