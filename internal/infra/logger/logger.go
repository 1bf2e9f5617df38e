// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Options selects the log destination and verbosity.
type Options struct {
	// Level is "debug", "info", "warn" or "error". Empty means info.
	Level string
	// File, when set, receives JSON lines instead of the console.
	File string
	// Console overrides the console destination. Defaults to stderr so
	// CLI output on stdout stays clean.
	Console io.Writer
}

// Init installs the global logger. The returned closer releases the log
// file, if any, and is always non-nil.
func Init(opts Options) (io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nopCloser{}, err
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.CallerMarshalFunc = shortCaller

	var (
		logger zerolog.Logger
		closer io.Closer = nopCloser{}
	)
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return closer, errors.Wrapf(err, "failed to open log file %s", opts.File)
		}
		closer = f
		logger = newFileLogger(f, level)
	} else {
		out := opts.Console
		if out == nil {
			out = os.Stderr
		}
		logger = newConsoleLogger(out, level)
	}

	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger
	return closer, nil
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, errors.Newf("unknown log level %q", level)
	}
}

func newConsoleLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	if level != zerolog.DebugLevel {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	w.PartsOrder = []string{"time", "level", "message", "caller"}
	w.FormatCaller = func(i interface{}) string {
		s, _ := i.(string)
		return "(" + s + ")"
	}
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

func newFileLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	ctx := zerolog.New(out).With().Timestamp()
	if level == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// shortCaller keeps the package directory and file name.
func shortCaller(_ uintptr, file string, line int) string {
	parts := strings.Split(file, "/")
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
