package session

import (
	"time"
)

type Kind string

const (
	KindPractice      Kind = "practice"
	KindTranscription Kind = "transcription"
	KindAssessment    Kind = "assessment"
)

func (k Kind) Valid() bool {
	switch k {
	case KindPractice, KindTranscription, KindAssessment:
		return true
	}
	return false
}

// LessonBound reports whether sessions of this kind must be attached to a lesson.
func (k Kind) LessonBound() bool {
	return k == KindPractice || k == KindAssessment
}

type (
	Detection struct {
		Sign       string  `json:"sign"`
		Confidence float64 `json:"confidence"`
	}

	// Data is the session payload persisted alongside the session row.
	Data struct {
		Language      string                 `json:"language"`
		Settings      map[string]interface{} `json:"settings"`
		DetectedSigns []Detection            `json:"detected_signs"`
		Transcript    string                 `json:"transcript"`
		FrameCount    int                    `json:"frame_count"`
		ConfidenceSum float64                `json:"confidence_sum"`
	}

	Session struct {
		ID           string     `json:"id"`
		UserID       string     `json:"user_id"`
		Kind         Kind       `json:"session_type"`
		LessonID     *int64     `json:"lesson_id"`
		StartTime    time.Time  `json:"start_time"`
		EndTime      *time.Time `json:"end_time"`
		Duration     int64      `json:"duration"` // seconds
		Accuracy     *float64   `json:"accuracy_score"`
		LastActivity time.Time  `json:"last_activity"`
		Data         Data       `json:"session_data"`
	}

	// Frame is one unit of recognizer input. Image is base64 encoded; Signs are optional labels
	// supplied by clients that already know what was signed (drills, tests).
	Frame struct {
		Image     string     `json:"image"`
		Signs     []string   `json:"signs"`
		Timestamp *time.Time `json:"timestamp"`
	}

	Recognition struct {
		Detections []Detection
		Confidence float64
		Text       string
	}

	FrameResult struct {
		SessionID       string      `json:"session_id"`
		FrameSeq        int         `json:"frame_seq"`
		Confidence      float64     `json:"confidence"`
		DetectedSigns   []Detection `json:"detected_signs"`
		TranscribedText string      `json:"transcribed_text"`
		Transcript      string      `json:"transcript"`
		Timestamp       time.Time   `json:"timestamp"`
	}

	// Config is the client supplied session configuration.
	Config struct {
		Language string
		Settings map[string]interface{}
	}
)

func (s Session) Active() bool {
	return s.EndTime == nil
}

// close stamps end time, duration and accuracy. Accuracy is the mean frame confidence, nil without frames.
func (s Session) close(now time.Time) Session {
	s.EndTime = &now
	if d := now.Sub(s.StartTime); d > 0 {
		s.Duration = int64(d / time.Second)
	}
	if s.Data.FrameCount > 0 {
		acc := s.Data.ConfidenceSum / float64(s.Data.FrameCount)
		s.Accuracy = &acc
	}
	return s
}

// apply appends a recognition to the payload and returns the new frame sequence.
func (s Session) apply(rec Recognition, now time.Time) Session {
	s.Data.DetectedSigns = append(s.Data.DetectedSigns, rec.Detections...)
	if rec.Text != "" {
		if s.Data.Transcript != "" {
			s.Data.Transcript += " "
		}
		s.Data.Transcript += rec.Text
	}
	s.Data.FrameCount++
	s.Data.ConfidenceSum += rec.Confidence
	s.LastActivity = now
	return s
}
