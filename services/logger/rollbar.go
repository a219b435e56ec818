package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/trainings/core"
)

// RollbarLogger reports to Rollbar and mirrors every entry to a standard logger.
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
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// report forwards an entry to rollbar. args may hold errors, extra data maps and one core.Actor.
func (l RollbarLogger) report(level string, msg string, args []interface{}) {
	var actor *core.Actor
	items := make([]interface{}, 0, len(args)+1)
	items = append(items, msg)
	for _, arg := range args {
		if a, ok := arg.(core.Actor); ok {
			if actor == nil {
				actor = &a
			}
			continue
		}
		items = append(items, arg)
	}

	if actor != nil {
		rollbar.SetPerson(actor.ID, actor.Name, actor.Email)
	} else {
		rollbar.ClearPerson()
	}
	rollbar.Log(level, items...)

	l.std.Printf("[%s] %s", level, msg)
	for _, arg := range args {
		if _, ok := arg.(core.Actor); !ok {
			l.std.Printf("%+v", arg)
		}
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.report(rollbar.DEBUG, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
