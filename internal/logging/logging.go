// Package logging builds the default logger, configured by the
// WEBTRANSPORT_LOG_LEVEL environment variable.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const envLogLevel = "WEBTRANSPORT_LOG_LEVEL"

// LogLevelNone is a log level that disables all logging.
const LogLevelNone slog.Level = slog.LevelError + 1

// ComponentKey is the slog attribute key used to identify the component.
const ComponentKey = "component"

type logLevels struct {
	Level      slog.Level            // top-level log level
	Components map[string]slog.Level // nil if no component-specific levels
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "none":
		return LogLevelNone, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", s)
	}
}

// parseLogConfig parses the value of WEBTRANSPORT_LOG_LEVEL.
// Without a top-level level, logging is disabled except for the listed components.
//
// Valid formats:
//   - "info"                       - top-level only
//   - "debug,session=info"         - top-level + component
//   - "conn=debug,session=error"   - components only
func parseLogConfig(config string) (logLevels, error) {
	levels := logLevels{Level: LogLevelNone}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		component, levelStr, isComponent := strings.Cut(part, "=")
		if !isComponent {
			level, err := parseLogLevel(part)
			if err != nil {
				return logLevels{}, err
			}
			levels.Level = level
			continue
		}
		component = strings.TrimSpace(component)
		level, err := parseLogLevel(strings.TrimSpace(levelStr))
		if err != nil {
			return logLevels{}, fmt.Errorf("component %s: %w", component, err)
		}
		if levels.Components == nil {
			levels.Components = make(map[string]slog.Level)
		}
		levels.Components[component] = level
	}
	return levels, nil
}

type levelFilterHandler struct {
	Component string // empty for top-level

	slog.Handler
	Levels logLevels
}

var _ slog.Handler = &levelFilterHandler{}

func (h *levelFilterHandler) Enabled(_ context.Context, level slog.Level) bool {
	if minLevel, ok := h.Levels.Components[h.Component]; ok {
		return level >= minLevel
	}
	return level >= h.Levels.Level
}

func (h *levelFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.Component
	for _, attr := range attrs {
		if attr.Key == ComponentKey {
			component = attr.Value.String()
			break
		}
	}
	return &levelFilterHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		Levels:    h.Levels,
		Component: component,
	}
}

func (h *levelFilterHandler) WithGroup(name string) slog.Handler {
	return &levelFilterHandler{
		Handler:   h.Handler.WithGroup(name),
		Levels:    h.Levels,
		Component: h.Component,
	}
}

// NewLogger returns a text logger writing to w, filtered by WEBTRANSPORT_LOG_LEVEL.
// An invalid value is reported on stderr and disables logging.
func NewLogger(w io.Writer) *slog.Logger {
	levels, err := parseLogConfig(os.Getenv(envLogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse %s: %v\n", envLogLevel, err)
		levels = logLevels{Level: LogLevelNone}
	}
	return slog.New(&levelFilterHandler{
		Handler: slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: slog.LevelDebug, // filtering is done by levelFilterHandler
		}),
		Levels: levels,
	})
}

var defaultLogger = sync.OnceValue(func() *slog.Logger { return NewLogger(os.Stderr) })

// DefaultLogger returns the logger used when none is configured.
func DefaultLogger() *slog.Logger {
	return defaultLogger()
}
