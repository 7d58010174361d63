package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger and also satisfies the printf-style logger
// interfaces of telegram-bot-api and gorm.
type Logger struct {
	*slog.Logger
}

func New(level, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

func NewWithWriter(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Nop discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child logger tagged with the component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component)}
}

// tgbotapi.BotLogger and gorm logger.Writer

func (l *Logger) Printf(format string, args ...any) {
	l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *Logger) Println(args ...any) {
	l.Debug(strings.TrimSpace(fmt.Sprintln(args...)))
}
