// Package eproelog wires zerolog so that every EPROE package and
// cmd/eproesim obtain loggers the same way: by component name, never as a
// bare global. Info/warn/debug go to stdout, error and above to stderr, so a
// caller piping eproesim's retry decisions can separate them from failures
// without parsing log levels out of one stream.
package eproelog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base zerolog.Logger

func init() {
	writer := zerolog.MultiLevelWriter(
		specificLevelWriter{
			Writer: zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: time.RFC3339,
			},
			Levels: []zerolog.Level{
				zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel,
			},
		},
		specificLevelWriter{
			Writer: zerolog.ConsoleWriter{
				Out: os.Stderr,
			},
			Levels: []zerolog.Level{
				zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel,
			},
		},
	)
	base = zerolog.New(writer).With().Timestamp().Logger()
}

// SetLevel sets the minimum level of loggers obtained afterwards through
// Component or Root; loggers obtained earlier keep their level. cmd/eproesim
// calls it once its configuration is loaded.
func SetLevel(level zerolog.Level) {
	base = base.Level(level)
}

// Component returns a child logger tagged with a component name. Every
// package in this module gets its logger this way — pkg/unthrottle tags
// "unthrottle", pkg/eproe tags "facade", and so on — so a log line always
// carries the name of the thing that produced it.
func Component(name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// Root is the component logger for callers with no narrower scope of their
// own, such as cmd/eproesim's top-level bootstrap and error reporting.
func Root() zerolog.Logger {
	return Component("eproe")
}

// specificLevelWriter from https://stackoverflow.com/questions/76858037/how-to-use-zerolog-to-filter-info-logs-to-stdout-and-error-logs-to-stderr
type specificLevelWriter struct {
	io.Writer
	Levels []zerolog.Level
}

func (w specificLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	for _, l := range w.Levels {
		if l == level {
			return w.Write(p)
		}
	}
	return len(p), nil
}
