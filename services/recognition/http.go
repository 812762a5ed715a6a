package recognitionsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/session"
)

var endpoint = "/v1/recognize"

type (
	httpService struct {
		url    string
		client *http.Client
		logger core.Logger
	}

	recognizeRequest struct {
		SessionID string                 `json:"session_id"`
		Language  string                 `json:"language"`
		Settings  map[string]interface{} `json:"settings,omitempty"`
		Image     string                 `json:"image"`
		Timestamp *time.Time             `json:"timestamp,omitempty"`
	}

	recognizeResponse struct {
		Confidence      float64             `json:"confidence"`
		DetectedSigns   []session.Detection `json:"detected_signs"`
		TranscribedText string              `json:"transcribed_text"`
	}
)

var _ session.Recognizer = (*httpService)(nil)

// NewHTTPService calls the recognition pipeline at conf.Recognition.URL.
func NewHTTPService(conf *core.Config, logger core.Logger) *httpService {
	return &httpService{
		url:    conf.Recognition.URL,
		client: &http.Client{Timeout: conf.Recognition.Timeout},
		logger: logger,
	}
}

func (svc httpService) Recognize(ctx context.Context, sess session.Session, frame session.Frame) (session.Recognition, error) {
	body, err := json.Marshal(recognizeRequest{
		SessionID: sess.ID,
		Language:  sess.Data.Language,
		Settings:  sess.Data.Settings,
		Image:     frame.Image,
		Timestamp: frame.Timestamp,
	})
	if err != nil {
		return session.Recognition{}, errors.Wrap(err, "encoding recognize request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.url+endpoint, bytes.NewReader(body))
	if err != nil {
		return session.Recognition{}, errors.Wrap(err, "building recognize request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.client.Do(req)
	if err != nil {
		return session.Recognition{}, core.NewUnavailableError(errors.Wrap(err, "calling recognizer"))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err = fmt.Errorf("recognizer responded %d: %s", resp.StatusCode, msg)
		if svc.logger != nil {
			svc.logger.Warn(err.Error(), map[string]interface{}{"session_id": sess.ID})
		}
		return session.Recognition{}, core.NewUnavailableError(err)
	}

	var out recognizeResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return session.Recognition{}, core.NewUnavailableError(errors.Wrap(err, "decoding recognize response"))
	}
	return session.Recognition{
		Detections: out.DetectedSigns,
		Confidence: core.Clamp(out.Confidence, 0, 1),
		Text:       out.TranscribedText,
	}, nil
}
