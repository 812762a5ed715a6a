package echoapi

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/session"
)

type (
	CompleteLessonRequest struct {
		Score *float64 `json:"score" query:"-" validate:"required,unit"` // query fallback is parsed in Bind
	}

	StartSessionRequest struct {
		SessionType string                 `json:"session_type" validate:"omitempty,oneof=practice transcription assessment"`
		Language    string                 `json:"language" validate:"omitempty,signlang"`
		Settings    map[string]interface{} `json:"settings"`
		LessonID    *int64                 `json:"lesson_id" validate:"omitempty,gt=0"`
	}

	ProcessFrameRequest struct {
		SessionID string        `json:"session_id" validate:"required"`
		Frame     session.Frame `json:"frame_data"`
	}

	EndSessionRequest struct {
		SessionID string `json:"session_id" validate:"required"`
	}
)

func (data *CompleteLessonRequest) Bind(ctx echo.Context) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to CompleteLessonRequest")
	}
	if data.Score == nil {
		if raw := ctx.QueryParam("score"); raw != "" {
			score, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return core.NewValidationError(err, core.FieldError{Field: "score", Error: "score must be a number"})
			}
			data.Score = &score
		}
	}
	return nil
}

func (data CompleteLessonRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(data)
}

func (data StartSessionRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(data)
}

func (data StartSessionRequest) Kind() session.Kind {
	if data.SessionType == "" {
		return session.KindTranscription
	}
	return session.Kind(data.SessionType)
}

// bindSessionID falls back to the `session_id` query parameter when the body has none.
func bindSessionID(ctx echo.Context, id *string) {
	if *id == "" {
		*id = core.CleanString(ctx.QueryParam("session_id"))
	}
}

func (data *ProcessFrameRequest) Bind(ctx echo.Context) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to ProcessFrameRequest")
	}
	bindSessionID(ctx, &data.SessionID)
	return nil
}

func (data ProcessFrameRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(data)
}

func (data *EndSessionRequest) Bind(ctx echo.Context) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to EndSessionRequest")
	}
	bindSessionID(ctx, &data.SessionID)
	return nil
}

func (data EndSessionRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(data)
}

// lessonIDParam parses the `:id` path parameter.
func lessonIDParam(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(errors.New("invalid lesson id"), core.FieldError{Field: "id", Error: "id must be a positive integer"})
	}
	return id, nil
}
