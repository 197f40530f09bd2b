package logsvc

import (
	"log"

	"github.com/mwalimuhq/ngao/core"
)

type consoleLogger struct {
	std *log.Logger
}

var _ core.Logger = (*consoleLogger)(nil)

// NewConsoleLogger wraps the std logger; used in DEV/TEST where rollbar
// reporting is just noise.
func NewConsoleLogger(std *log.Logger) *consoleLogger {
	return &consoleLogger{std: std}
}

func (l consoleLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		l.std.Printf("%+v", arg)
	}
}

func (l consoleLogger) Debug(msg string, args ...interface{}) { l.print("DEBUG", msg, args) }
func (l consoleLogger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l consoleLogger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l consoleLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }
