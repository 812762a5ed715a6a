package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	ended := now

	r := NewRegistry()
	r.Load([]Session{
		{ID: "a", UserID: "u1", Kind: KindTranscription, LastActivity: now.Add(-time.Hour)},
		{ID: "b", UserID: "u1", Kind: KindPractice, LastActivity: now},
		{ID: "c", UserID: "u2", Kind: KindTranscription, LastActivity: now.Add(-time.Hour)},
		{ID: "d", UserID: "u2", Kind: KindPractice, EndTime: &ended},
	})
	assert.Equal(t, 3, r.Len())

	// busy sessions are skipped
	busy, _ := r.get("c")
	busy.mu.Lock()
	assert.Equal(t, []string{"a"}, r.idleSince(now.Add(-time.Minute)))
	busy.mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "c"}, r.idleSince(now.Add(-time.Minute)))

	// loadOrStore keeps the entry already held
	e := r.loadOrStore(Session{ID: "a", UserID: "u1", Kind: KindTranscription, LastActivity: now})
	assert.Equal(t, now.Add(-time.Hour), e.sess.LastActivity)

	r.dropFor("u1", KindTranscription)
	assert.True(t, e.closed.Load())
	_, ok := r.get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestSession_close(t *testing.T) {
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	sess := Session{StartTime: start, LastActivity: start}

	closed := sess.close(start.Add(95 * time.Second))
	assert.False(t, closed.Active())
	assert.Equal(t, int64(95), closed.Duration)
	assert.Nil(t, closed.Accuracy)

	sess = sess.apply(Recognition{Detections: []Detection{{Sign: "hello", Confidence: 0.9}}, Confidence: 0.9, Text: "hello"}, start)
	sess = sess.apply(Recognition{Confidence: 0.5}, start)
	sess = sess.apply(Recognition{Text: "world", Confidence: 0.7}, start)
	assert.Equal(t, "hello world", sess.Data.Transcript)
	assert.Equal(t, 3, sess.Data.FrameCount)

	closed = sess.close(start)
	assert.InDelta(t, 0.7, *closed.Accuracy, 1e-9)
	assert.Zero(t, closed.Duration)
}
