/*
Package log provides the leveled, line-buffered logger every Trogdor
component writes through.

It wraps zerolog the way the original Warren log.go does — a package-level
Logger, an Init(Config), and With*-style child-logger helpers — widened to
the four levels trogdor's spec calls for (TRACE/DEBUG/INFO/WARN, zerolog's
native TraceLevel needs no translation) and to own the underlying file
handle so a daemon can flush and close it on teardown.

# Architecture

	┌──────────────── pkg/log ────────────────┐
	│  Init(Config) ─┬─> lockedWriter (mutex)  │
	│                └─> zerolog.Logger        │
	│  WithComponent/WithNodeName -> child log  │
	│  StartSignalHandler -> goroutine reading  │
	│    a signal.Notify channel (SIGINT/TERM/  │
	│    USR1); this is the Go analogue of the  │
	│    spec's self-pipe: no handler code runs │
	│    in true OS signal context either way.  │
	└────────────────────────────────────────┘
*/
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger instance, set by Init.
var Logger zerolog.Logger

// Level names the severities Init accepts: the four the spec's Logger
// component defines (trace, debug, info, warn) plus error.
type Level string

const (
	TraceLevel Level = "trace"
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config configures Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// lockedWriter serializes writes to Output so concurrent callers never
// interleave the characters of two different lines, per spec §4.2.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

var closer io.Closer

// Init initializes the global Logger. Output defaults to os.Stdout.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case TraceLevel:
		level = zerolog.TraceLevel
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if c, ok := out.(io.Closer); ok && out != os.Stdout && out != os.Stderr {
		closer = c
	}
	guarded := &lockedWriter{w: out}

	if cfg.JSONOutput {
		Logger = zerolog.New(guarded).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        guarded,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// OpenFile opens the log destination named by the config file's "log.path"
// field. "/dev/stdout" and "" both mean os.Stdout, matching ducktape's
// basic_log convention of treating that path as a pass-through.
func OpenFile(path string) (io.Writer, error) {
	if path == "" || path == "/dev/stdout" {
		return os.Stdout, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Close flushes and closes the underlying log file, if Init was given one
// that isn't stdout/stderr. Safe to call even if none was opened.
func Close() error {
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// WithComponent returns a child logger tagging every line with component.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithNodeName returns a child logger tagging every line with node_name,
// mirroring the agent/coordinator's "which node is this" context.
func WithNodeName(name string) zerolog.Logger {
	return Logger.With().Str("node_name", name).Logger()
}

// WithFault returns a child logger tagging every line with fault_name.
func WithFault(name string) zerolog.Logger {
	return Logger.With().Str("fault_name", name).Logger()
}

func Trace(msg string) { Logger.Trace().Msg(msg) }
func Debug(msg string) { Logger.Debug().Msg(msg) }
func Info(msg string)  { Logger.Info().Msg(msg) }
func Warn(msg string)  { Logger.Warn().Msg(msg) }
func Error(msg string) { Logger.Error().Msg(msg) }

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
