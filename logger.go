package duplex

import (
	"context"
	"log/slog"
	"os"

	"github.com/rs/zerolog"
)

// LogLevel is the severity of a facade log event.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// LogEvent is one diagnostic event emitted by the facade: a routed write,
// a transaction failure, a shutdown outcome.
type LogEvent struct {
	Level   LogLevel
	Message string
	Fields  map[string]interface{}
}

// Logger receives facade log events. Implementations must be safe for
// concurrent use.
type Logger interface {
	Report(event LogEvent)
}

// ZerologLogger adapts a zerolog.Logger. It is the default logger.
type ZerologLogger struct {
	logger zerolog.Logger
}

func NewZerologLogger(logger zerolog.Logger) ZerologLogger {
	return ZerologLogger{logger: logger}
}

func (l ZerologLogger) Report(event LogEvent) {
	evt := l.logger.WithLevel(zerologLevel(event.Level))
	if len(event.Fields) > 0 {
		evt = evt.Fields(event.Fields)
	}
	evt.Msg(event.Message)
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogDebug:
		return zerolog.DebugLevel
	case LogInfo:
		return zerolog.InfoLevel
	case LogWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// SlogLogger adapts a *slog.Logger for applications standardized on slog.
type SlogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

func NewSlogLogger(logger *slog.Logger) SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogLogger{logger: logger, ctx: context.Background()}
}

func (l SlogLogger) WithContext(ctx context.Context) SlogLogger {
	return SlogLogger{logger: l.logger, ctx: ctx}
}

func (l SlogLogger) Report(event LogEvent) {
	attrs := make([]slog.Attr, 0, len(event.Fields))
	for key, value := range event.Fields {
		attrs = append(attrs, slog.Any(key, value))
	}
	l.logger.LogAttrs(l.ctx, slogLevel(event.Level), event.Message, attrs...)
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LogDebug:
		return slog.LevelDebug
	case LogInfo:
		return slog.LevelInfo
	case LogWarn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func defaultLogger() Logger {
	return NewZerologLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())
}
