package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/definite-d/zonosign-backend/core/progress"
)

type (
	ProgressService interface {
		StartLesson(ctx context.Context, userID string, lessonID int64) (progress.Record, error)
		CompleteLesson(ctx context.Context, userID string, lessonID int64, score float64) (progress.Record, error)
		Overview(ctx context.Context, userID string) (progress.Overview, error)
		ModuleProgress(ctx context.Context, userID string) ([]progress.Record, error)
	}

	LessonResponse struct {
		Message string `json:"message"`
		progress.Record
	}
)

var _ ProgressService = (*progress.Service)(nil)

type progressApi struct {
	svc      ProgressService
	validate *validator.Validate
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc ProgressService, validate *validator.Validate) {
	api := progressApi{svc: svc, validate: validate}

	pg := g.Group("/progress", jwt)
	pg.GET("/overview", api.overview)
	pg.GET("/modules", api.modules)
	pg.POST("/lessons/:id/start", api.startLesson)
	pg.POST("/lessons/:id/complete", api.completeLesson)
}

// Handlers

func (api *progressApi) overview(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	ov, err := api.svc.Overview(ctx.Request().Context(), uid)
	if err != nil {
		return errors.Wrap(err, "computing overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *progressApi) modules(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	records, err := api.svc.ModuleProgress(ctx.Request().Context(), uid)
	if err != nil {
		return errors.Wrap(err, "querying module progress")
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *progressApi) startLesson(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	lessonID, err := lessonIDParam(ctx)
	if err != nil {
		return err
	}

	rec, err := api.svc.StartLesson(ctx.Request().Context(), uid, lessonID)
	if err != nil {
		return errors.Wrap(err, "starting lesson")
	}
	return ctx.JSON(http.StatusCreated, LessonResponse{Message: "Lesson started", Record: rec})
}

func (api *progressApi) completeLesson(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	lessonID, err := lessonIDParam(ctx)
	if err != nil {
		return err
	}

	var data CompleteLessonRequest
	if err = data.Bind(ctx); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.CompleteLesson(ctx.Request().Context(), uid, lessonID, *data.Score)
	if err != nil {
		return errors.Wrap(err, "completing lesson")
	}
	return ctx.JSON(http.StatusOK, LessonResponse{Message: "Lesson completed", Record: rec})
}
