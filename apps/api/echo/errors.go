package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/definite-d/zonosign-backend/core"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")

	kindUnauthorized = "unauthorized"
)

type httpError struct {
	Kind   string            `json:"kind"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func fieldErrors(flds []core.FieldError) map[string]string {
	if len(flds) == 0 {
		return nil
	}
	m := make(map[string]string, len(flds))
	for _, f := range flds {
		m[f.Field] = f.Error
	}
	return m
}

func kindOfStatus(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return kindUnauthorized
	case http.StatusForbidden:
		return core.KindForbidden
	case http.StatusNotFound:
		return core.KindNotFound
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return core.KindUnavailable
	}
	if code >= 400 && code < 500 {
		return core.KindValidation
	}
	return core.KindInternal
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var body httpError

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				body = httpError{Kind: kindUnauthorized, Error: "missing or malformed jwt"}
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			msg, ok := origErr.Message.(string)
			if !ok {
				msg = http.StatusText(code)
			}
			body = httpError{Kind: kindOfStatus(code), Error: msg}
		case validator.ValidationErrors:
			vErr := core.TranslateValidationErrors(origErr, translator).(*core.ValidationError)
			code = http.StatusBadRequest
			body = httpError{Kind: core.KindValidation, Error: "invalid request", Fields: fieldErrors(vErr.Fields)}
		case *core.ValidationError:
			code = http.StatusBadRequest
			body = httpError{Kind: core.KindValidation, Error: origErr.Error(), Fields: fieldErrors(origErr.Fields)}
			if body.Error == "" {
				body.Error = "invalid request"
			}
		case *core.ConflictError:
			code = http.StatusBadRequest
			body = httpError{Kind: core.KindConflict, Error: origErr.Error()}
		case *core.NotFoundError:
			code = http.StatusNotFound
			body = httpError{Kind: core.KindNotFound, Error: origErr.Error()}
		case *core.ForbiddenError:
			code = http.StatusForbidden
			body = httpError{Kind: core.KindForbidden, Error: origErr.Error()}
		case *core.UnavailableError:
			code = http.StatusServiceUnavailable
			body = httpError{Kind: core.KindUnavailable, Error: "service temporarily unavailable, retry later"}
			logger.Warn(origErr.Error(), err, contextLogUser(ctx))
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			body = httpError{Kind: core.KindInternal, Error: msg}
			logger.Error(msg, errors.Wrap(err, msg), contextLogUser(ctx))

			if ctx.Echo().Debug {
				body.Error = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, body)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
