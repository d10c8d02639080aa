package models

import "time"

// UserStatistics aggregates a user's scored sessions. Only sessions that
// produced a non-zero total score are counted here.
type UserStatistics struct {
	UserID                uint       `json:"user_id" gorm:"primaryKey"`
	ScoredSessions        int        `json:"scored_sessions" gorm:"default:0"`
	AverageScore          float64    `json:"average_score" gorm:"default:0"`
	BestScore             int        `json:"best_score" gorm:"default:0"`
	BestListeningScore    int        `json:"best_listening_score" gorm:"default:0"`
	BestReadingScore      int        `json:"best_reading_score" gorm:"default:0"`
	TotalTimeSpentSeconds int        `json:"total_time_spent" gorm:"default:0"`
	LastSessionAt         *time.Time `json:"last_session_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (UserStatistics) TableName() string {
	return "user_statistics"
}
