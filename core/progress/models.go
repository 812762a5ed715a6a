package progress

import "time"

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Record tracks one user's progress through one lesson. There is at most one per (user, lesson).
type Record struct {
	ID           int64      `json:"id"`
	UserID       string     `json:"user_id"`
	ModuleID     int64      `json:"module_id"`
	LessonID     int64      `json:"lesson_id"`
	Status       Status     `json:"status"`
	Progress     float64    `json:"progress"`
	Score        *float64   `json:"score"`
	TimeSpent    int64      `json:"time_spent"` // seconds
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	LastAccessed time.Time  `json:"last_accessed"`
}

func (r Record) IsNew() bool {
	return r.ID == 0
}

// Overview summarizes a user's progress over the active curriculum.
type Overview struct {
	TotalModules     int     `json:"total_modules"`
	CompletedModules int     `json:"completed_modules"`
	CurrentModule    *int64  `json:"current_module"`
	OverallProgress  float64 `json:"overall_progress"` // percent
	TimeSpentTotal   int64   `json:"time_spent_total"` // seconds
}
