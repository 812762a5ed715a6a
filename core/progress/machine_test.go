package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/definite-d/zonosign-backend/core"
)

func TestStart(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		rec          Record
		wantConflict string
	}{
		{name: "new record", rec: Record{Status: StatusNotStarted}},
		{name: "restart after abandon", rec: Record{ID: 3, Status: StatusNotStarted, TimeSpent: 40}},
		{name: "in progress", rec: Record{Status: StatusInProgress}, wantConflict: "lesson already in progress"},
		{name: "completed", rec: Record{Status: StatusCompleted}, wantConflict: "lesson already completed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Start(tt.rec, now)
			if tt.wantConflict != "" {
				assert.True(t, core.IsConflict(err))
				assert.EqualError(t, err, tt.wantConflict)
				assert.Equal(t, tt.rec, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, StatusInProgress, got.Status)
			assert.Equal(t, now, *got.StartedAt)
			assert.Equal(t, now, got.LastAccessed)
			assert.Equal(t, tt.rec.TimeSpent, got.TimeSpent)
		})
	}
}

func TestComplete(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(90*time.Second + 400*time.Millisecond)

	got, err := Complete(Record{Status: StatusInProgress, StartedAt: &start, TimeSpent: 10}, 0.8, now)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 1.0, got.Progress)
	assert.Equal(t, 0.8, *got.Score)
	assert.Equal(t, int64(100), got.TimeSpent)
	assert.Equal(t, now, *got.CompletedAt)
	assert.Equal(t, start, *got.StartedAt)

	_, err = Complete(Record{Status: StatusNotStarted}, 0.5, now)
	assert.EqualError(t, err, "lesson not started")
	_, err = Complete(got, 0.5, now)
	assert.EqualError(t, err, "lesson already completed")
}

func TestAbandon(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	got, err := Abandon(Record{Status: StatusInProgress, StartedAt: &start, TimeSpent: 5}, start.Add(time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, StatusNotStarted, got.Status)
	assert.Nil(t, got.StartedAt)
	assert.Equal(t, int64(65), got.TimeSpent)

	_, err = Abandon(got, start)
	assert.True(t, core.IsConflict(err))
}

func TestElapsed(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)

	assert.Equal(t, int64(0), elapsed(nil, now))
	assert.Equal(t, int64(0), elapsed(&later, now)) // clock skew
	assert.Equal(t, int64(3600), elapsed(&now, later))
}
