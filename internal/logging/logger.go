package logging

import (
	"io"
	"log/slog"
	"strings"
)

type Environment struct {
	Service string
	Version string
	Commit  string
	Network string
	TopicID string
}

// NewJSONLoggerTo builds a JSON logger writing to w at the named level.
// Unknown level names fall back to info.
func NewJSONLoggerTo(w io.Writer, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(h)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithEnvironment attaches the process-wide fields to every record.
func WithEnvironment(logger *slog.Logger, env Environment) *slog.Logger {
	attrs := make([]any, 0, 5)
	if env.Service != "" {
		attrs = append(attrs, slog.String("service", env.Service))
	}
	if env.Version != "" {
		attrs = append(attrs, slog.String("version", env.Version))
	}
	if env.Commit != "" {
		attrs = append(attrs, slog.String("commit", env.Commit))
	}
	if env.Network != "" {
		attrs = append(attrs, slog.String("network", env.Network))
	}
	if env.TopicID != "" {
		attrs = append(attrs, slog.String("topic_id", env.TopicID))
	}
	return logger.With(attrs...)
}

// Discard is a logger for callers that do not care about output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
