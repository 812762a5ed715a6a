package logsvc

import (
	"log"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/definite-d/zonosign-backend/core"
)

type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// splitArgs pulls the first core.LogUser out of args. Rollbar keeps one person per item.
// expected fmt: msg | error, map[string]interface{}, core.LogUser
func splitArgs(args []interface{}) (usr *core.LogUser, rest []interface{}) {
	rest = make([]interface{}, 0, len(args))
	for _, arg := range args {
		if u, ok := arg.(core.LogUser); ok {
			if usr == nil {
				usr = &u
			}
			continue
		}
		rest = append(rest, arg)
	}
	return usr, rest
}

func (l RollbarLogger) log(level string, report func(...interface{}), msg string, args []interface{}) {
	usr, rest := splitArgs(args)
	if usr != nil && usr.ID != "" {
		rollbar.SetPerson(usr.ID, "", "")
	} else {
		rollbar.ClearPerson()
	}
	report(append([]interface{}{msg}, rest...)...)

	if usr != nil && usr.ID != "" {
		l.std.Printf("%s %s user=%s\n", strings.ToUpper(level), msg, usr.ID)
	} else {
		l.std.Printf("%s %s\n", strings.ToUpper(level), msg)
	}
	for _, arg := range rest {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(rollbar.DEBUG, rollbar.Debug, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(rollbar.INFO, rollbar.Info, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(rollbar.WARN, rollbar.Warning, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(rollbar.ERR, rollbar.Error, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, rollbar.Critical, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
