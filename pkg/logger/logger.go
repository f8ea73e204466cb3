package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

var ErrInvalidLevel = errors.New("logger: invalid level")

// Config selects the output format and the optional Sentry sink.
type Config struct {
	Level             string `env:"LOG_LEVEL" envDefault:"info"`
	Format            string `env:"LOG_FORMAT" envDefault:"json"`
	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// SentryLevel is the lowest level forwarded to Sentry as a log entry.
	// Errors always become Sentry issues.
	SentryLevel string `env:"SENTRY_LOG_LEVEL" envDefault:"warn"`
}

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return l, nil
}

// New builds the process logger writing to stdout. When a Sentry DSN is set,
// records are also forwarded to Sentry. The returned flush func drains the
// Sentry buffer and is safe to call without Sentry.
func New(cfg Config, extractors ...ContextExtractor) (*slog.Logger, func(time.Duration), error) {
	return newLogger(os.Stdout, cfg, extractors...)
}

func newLogger(w io.Writer, cfg Config, extractors ...ContextExtractor) (*slog.Logger, func(time.Duration), error) {
	noflush := func(time.Duration) {}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, noflush, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var out slog.Handler
	switch cfg.Format {
	case "text":
		out = slog.NewTextHandler(w, opts)
	default:
		out = slog.NewJSONHandler(w, opts)
	}

	if cfg.SentryDSN == "" {
		return slog.New(newContextHandler(out, extractors...)), noflush, nil
	}

	sentryLevel, err := ParseLevel(cfg.SentryLevel)
	if err != nil {
		return nil, noflush, err
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		EnableLogs:  true,
	}); err != nil {
		slog.New(out).Error("sentry disabled", slog.Any("error", err))
		return slog.New(newContextHandler(out, extractors...)), noflush, nil
	}

	sink := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   levelsFrom(sentryLevel),
	}.NewSentryHandler(context.Background())

	flush := func(d time.Duration) { sentry.Flush(d) }
	return slog.New(newContextHandler(fanoutHandler{out, sink}, extractors...)), flush, nil
}

func levelsFrom(floor slog.Level) []slog.Level {
	all := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}
	out := make([]slog.Level, 0, len(all))
	for _, l := range all {
		if l >= floor {
			out = append(out, l)
		}
	}
	return out
}

// NewNope discards everything. Packages fall back to it when no logger is given.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
