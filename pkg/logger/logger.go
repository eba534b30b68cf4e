// Package logger builds the application slog logger: leveled JSON or text
// output, file rotation, sensitive-field masking and optional Sentry fanout.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger built by New.
type Options struct {
	Level      string
	Format     string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Sentry     bool
}

// New builds the process-wide slog.Logger. When FilePath is set, output goes
// to both stdout and a size-rotated file. When Sentry is enabled, warning
// and higher records are mirrored to the current Sentry hub.
func New(opts Options) *slog.Logger {
	level := parseLevel(opts.Level)

	var out io.Writer = os.Stdout
	if opts.FilePath != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		base = slog.NewTextHandler(out, handlerOpts)
	} else {
		base = slog.NewJSONHandler(out, handlerOpts)
	}

	handler := slog.Handler(NewMaskingHandler(base))

	if opts.Sentry {
		sentryHandler := slogsentry.Option{
			Level: slog.LevelWarn,
			Hub:   sentry.CurrentHub(),
		}.NewSentryHandler()

		handler = slogmulti.Fanout(handler, NewMaskingHandler(sentryHandler))
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
