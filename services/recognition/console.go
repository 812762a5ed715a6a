package recognitionsvc

import (
	"context"
	"log"
	"strings"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/session"
)

// hintConfidence is reported for every sign hint the console recognizer echoes back.
const hintConfidence = 0.9

// consoleService recognizes the sign hints carried by a frame. It never inspects the image.
type consoleService struct {
	disableOutput bool
}

var _ session.Recognizer = (*consoleService)(nil)

func NewConsoleService() *consoleService {
	return &consoleService{}
}

// NewConsoleServiceMock is a silent console recognizer for tests.
func NewConsoleServiceMock() *consoleService {
	return &consoleService{disableOutput: true}
}

func (svc consoleService) Recognize(ctx context.Context, sess session.Session, frame session.Frame) (session.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return session.Recognition{}, err
	}

	signs := make([]string, 0, len(frame.Signs))
	dets := make([]session.Detection, 0, len(frame.Signs))
	for _, s := range frame.Signs {
		if s = core.CleanString(s, true /* lower */); s != "" {
			signs = append(signs, s)
			dets = append(dets, session.Detection{Sign: s, Confidence: hintConfidence})
		}
	}

	rec := session.Recognition{Detections: dets, Text: strings.Join(signs, " ")}
	if len(dets) > 0 {
		rec.Confidence = hintConfidence
	}

	if !svc.disableOutput {
		log.Printf("recognition[%s] %s: %q (%.2f)\n", sess.Data.Language, sess.ID, rec.Text, rec.Confidence)
	}
	return rec, nil
}
