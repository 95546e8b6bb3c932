package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Setup installs the default slog logger, writing to stderr.  `format` is
// "json" or "text"; `level` is one of "debug", "info", "warn" or "error".
func Setup(level string, format string) {
	SetupWriter(os.Stderr, level, format)
}

// SetupWriter is like Setup but writes to `w`.
func SetupWriter(w io.Writer, level string, format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithComponent returns the default logger tagged with `component`.
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// ParseLevel maps a level name to a slog level.  Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger allows simple logging for the time that a function takes to execute.
// In addition, this logger allows fake time to be added to simulate work
// supposed to be done.  The elapsed time is logged at debug level, so it only
// shows up once `Setup` has been called with "debug".  A typical use case
// would be:
//
//	func test() {
//		l := CreateLogger("test")
//		defer l.LogTime()
//
//		... Some Work ...
//
//		l.AddTime(time.Minute * 2) // Simulates two minutes doing some work
//	}
type Logger struct {
	name    string
	start   time.Time
	elapsed time.Duration
}

// CreateLogger creates a logger for `name`.
func CreateLogger(name string) *Logger {
	return &Logger{name: name, start: time.Now()}
}

// AddTime adds a time period of `t` as if that period of time had elapsed.
func (l *Logger) AddTime(t time.Duration) {
	l.elapsed += t
}

// LogTime logs how long it has been since the logger was created, together with
// all the time added to the logger.  This also returns the duration that is
// being logged.
func (l *Logger) LogTime() time.Duration {
	d := l.elapsed + time.Since(l.start)
	slog.Debug("timing", "name", l.name, "took", d)
	return d
}
