package progress

import (
	"time"

	"github.com/definite-d/zonosign-backend/core"
)

var (
	msgAlreadyInProgress = "lesson already in progress"
	msgAlreadyCompleted  = "lesson already completed"
	msgNotStarted        = "lesson not started"
)

// Start moves a not_started record to in_progress and stamps its timer.
func Start(rec Record, now time.Time) (Record, error) {
	switch rec.Status {
	case StatusInProgress:
		return rec, core.NewConflictError(msgAlreadyInProgress)
	case StatusCompleted:
		return rec, core.NewConflictError(msgAlreadyCompleted)
	}
	rec.Status = StatusInProgress
	rec.StartedAt = &now
	rec.CompletedAt = nil
	rec.LastAccessed = now
	return rec, nil
}

// Complete closes the timer of an in_progress record and records the score.
func Complete(rec Record, score float64, now time.Time) (Record, error) {
	switch rec.Status {
	case StatusNotStarted, "":
		return rec, core.NewConflictError(msgNotStarted)
	case StatusCompleted:
		return rec, core.NewConflictError(msgAlreadyCompleted)
	}
	rec.TimeSpent += elapsed(rec.StartedAt, now)
	rec.Status = StatusCompleted
	rec.Progress = 1
	rec.Score = &score
	rec.CompletedAt = &now
	rec.LastAccessed = now
	return rec, nil
}

// Abandon returns an in_progress record to not_started. Time already spent is kept.
func Abandon(rec Record, now time.Time) (Record, error) {
	switch rec.Status {
	case StatusNotStarted, "":
		return rec, core.NewConflictError(msgNotStarted)
	case StatusCompleted:
		return rec, core.NewConflictError(msgAlreadyCompleted)
	}
	rec.TimeSpent += elapsed(rec.StartedAt, now)
	rec.Status = StatusNotStarted
	rec.StartedAt = nil
	rec.LastAccessed = now
	return rec, nil
}

// elapsed returns whole seconds since start, never negative.
func elapsed(start *time.Time, now time.Time) int64 {
	if start == nil {
		return 0
	}
	d := now.Sub(*start)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
