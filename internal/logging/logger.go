// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New builds a JSON logger. Production output keeps RFC 3339 timestamps;
// elsewhere times are local and source locations are attached.
func New(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if !strings.EqualFold(env, "production") {
		opts.ReplaceAttr = replaceTimeAttr
		opts.AddSource = true
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Init builds the logger and installs it as the default.
func Init(w io.Writer, env, level string) *slog.Logger {
	logger := New(w, env, level)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func replaceTimeAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.String("time", a.Value.Time().Local().Format("2006-01-02 15:04:05"))
	}
	return a
}
