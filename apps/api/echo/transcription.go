package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/definite-d/zonosign-backend/core/session"
)

type (
	SessionService interface {
		StartSession(ctx context.Context, userID string, k session.Kind, lessonID *int64, cfg session.Config) (session.Session, error)
		ProcessFrame(ctx context.Context, id, callerID string, frame session.Frame) (session.FrameResult, error)
		EndSession(ctx context.Context, id, callerID string) (session.Session, error)
		Session(ctx context.Context, id, callerID string) (session.Session, error)
		History(ctx context.Context, userID string) ([]session.Session, error)
	}

	SessionStartedResponse struct {
		SessionID   string       `json:"session_id"`
		Status      string       `json:"status"`
		SessionType session.Kind `json:"session_type"`
		Language    string       `json:"language"`
		LessonID    *int64       `json:"lesson_id"`
		StartTime   time.Time    `json:"start_time"`
	}

	SessionEndedResponse struct {
		Message       string   `json:"message"`
		SessionID     string   `json:"session_id"`
		Duration      int64    `json:"duration"`
		AccuracyScore *float64 `json:"accuracy_score"`
		FrameCount    int      `json:"frame_count"`
		Transcript    string   `json:"transcript"`
	}
)

var _ SessionService = (*session.Service)(nil)

type transcriptionApi struct {
	svc      SessionService
	validate *validator.Validate
}

func registerTranscriptionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc SessionService, validate *validator.Validate) {
	api := transcriptionApi{svc: svc, validate: validate}

	tg := g.Group("/transcription", jwt)
	tg.POST("/start-session", api.startSession)
	tg.POST("/process-frame", api.processFrame)
	tg.POST("/end-session", api.endSession)
	tg.GET("/sessions", api.history)
	tg.GET("/sessions/:id", api.retrieve)
}

// Handlers

func (api *transcriptionApi) startSession(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	var data StartSessionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StartSessionRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.StartSession(
		ctx.Request().Context(), uid, data.Kind(), data.LessonID,
		session.Config{Language: data.Language, Settings: data.Settings},
	)
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusOK, SessionStartedResponse{
		SessionID:   sess.ID,
		Status:      "started",
		SessionType: sess.Kind,
		Language:    sess.Data.Language,
		LessonID:    sess.LessonID,
		StartTime:   sess.StartTime,
	})
}

func (api *transcriptionApi) processFrame(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	var data ProcessFrameRequest
	if err = data.Bind(ctx); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.ProcessFrame(ctx.Request().Context(), data.SessionID, uid, data.Frame)
	if err != nil {
		return errors.Wrap(err, "processing frame")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *transcriptionApi) endSession(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	var data EndSessionRequest
	if err = data.Bind(ctx); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.EndSession(ctx.Request().Context(), data.SessionID, uid)
	if err != nil {
		return errors.Wrap(err, "ending session")
	}
	return ctx.JSON(http.StatusOK, SessionEndedResponse{
		Message:       "Session ended",
		SessionID:     sess.ID,
		Duration:      sess.Duration,
		AccuracyScore: sess.Accuracy,
		FrameCount:    sess.Data.FrameCount,
		Transcript:    sess.Data.Transcript,
	})
}

func (api *transcriptionApi) history(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	sessions, err := api.svc.History(ctx.Request().Context(), uid)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *transcriptionApi) retrieve(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	sess, err := api.svc.Session(ctx.Request().Context(), ctx.Param("id"), uid)
	if err != nil {
		return errors.Wrap(err, "getting session")
	}
	return ctx.JSON(http.StatusOK, sess)
}
