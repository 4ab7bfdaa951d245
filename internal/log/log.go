// Package log configures netqualctl's process-wide logrus output: level,
// a choice of output formatter, and a fan-out of appenders (stdout, a
// rotated file). This is the one entry point netqualctl's daemon calls —
// every pipeline-stage log line goes through a *logrus.Entry handed in at
// construction (aggregator.Config.Log, reporter.Config.Log,...), not
// through a package-level accessor.
package log

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var once sync.Once

// Init configures logrus.StandardLogger()'s level, formatter, and output
// from cfg. Only the first call in a process takes effect; repeated calls
// are a no-op, matching the rest of this library's init-is-idempotent
// convention for process-wide setup.
func Init(cfg *LoggerConfig) {
	once.Do(func() { configure(logrus.StandardLogger(), cfg) })
}

func configure(l *logrus.Logger, cfg *LoggerConfig) {
	if cfg.Formatter != nil {
		l.SetFormatter(&prefixed.TextFormatter{
			ForceColors: cfg.Formatter.EnableColors,
			FullTimestamp: cfg.Formatter.FullTimestamp,
			DisableSorting: cfg.Formatter.DisableSorting,
			TimestampFormat: cfg.Time,
		})
	} else {
		l.SetFormatter(&formatter{pattern: cfg.Pattern, time: cfg.Time})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	mw := NewMultiWriter()
	if len(cfg.Appenders) == 0 {
		mw.Add(os.Stdout)
	}
	for _, a := range cfg.Appenders {
		switch a.Type {
		case "file":
			mw.AddFileAppender(fileAppenderOptFromMap(a.Options))
		case "loki":
			if lw, err := NewLokiWriter(lokiOptFromMap(a.Options)); err == nil {
				mw.Add(lw)
			}
		case "stdout", "":
			mw.Add(os.Stdout)
		default:
			mw.Add(os.Stdout)
		}
	}
	l.SetOutput(mw)
}
