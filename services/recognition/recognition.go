package recognitionsvc

import (
	"github.com/pkg/errors"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/session"
)

const (
	EngineConsole = "console"
	EngineHTTP    = "http"
)

// New returns the recognizer selected by conf.Recognition.Engine.
// The console recognizer only echoes sign hints, so it is refused outside DEV|TEST mode.
func New(conf *core.Config, logger core.Logger) (session.Recognizer, error) {
	switch conf.Recognition.Engine {
	case EngineHTTP:
		if conf.Recognition.URL == "" {
			return nil, errors.New("recognition.url is required by the http recognizer")
		}
		return NewHTTPService(conf, logger), nil
	case EngineConsole, "":
		if !(conf.Debug || conf.TestMode) {
			return nil, errors.New("console recognizer is only available in DEV|TEST mode, set recognition.engine=http")
		}
		return NewConsoleService(), nil
	}
	return nil, errors.Errorf("unsupported recognition engine %q", conf.Recognition.Engine)
}
