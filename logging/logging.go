// Package logging builds the process logger.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LevelCritical marks failures the process cannot continue past.
const LevelCritical = slog.Level(12)

// ParseLevel accepts debug, info, warn, error and critical, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "critical":
		return LevelCritical, nil
	}

	return 0, fmt.Errorf("unknown log level %q", s)
}

// New returns a text or json logger writing to w at the given level.
func New(w io.Writer, level, format string, opts ...Option) (*slog.Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	hopts := &slog.HandlerOptions{Level: lvl, ReplaceAttr: renameCritical}

	var handler slog.Handler

	switch format {
	case "", "text":
		handler = slog.NewTextHandler(w, hopts)
	case "json":
		handler = slog.NewJSONHandler(w, hopts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	if o.send != nil {
		handler = &journalHandler{Handler: handler, send: o.send, identifier: o.identifier}
	}

	return slog.New(handler), nil
}

// Critical logs msg at LevelCritical.
func Critical(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelCritical, msg, args...)
}

func renameCritical(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}

	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}

	return a
}
