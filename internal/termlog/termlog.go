// Package termlog builds the slog loggers behind grove's terminal output.
package termlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ErrUnknownFormat is returned when an unrecognized log format is requested.
var ErrUnknownFormat = errors.New("unknown log format")

// Compile-time interface check.
var _ slog.Handler = (*ConsoleHandler)(nil)

var (
	_errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	_warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow
	_debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // dim
	_fileStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // cyan
)

// ConsoleHandler renders records as colored single-line messages for
// interactive use. A "file" attribute, when present, is appended in cyan so
// multi-file runs stay readable; other inline attributes are suppressed in
// this mode (json/text modes expose them via the stdlib handlers).
type ConsoleHandler struct {
	out    io.Writer
	level  slog.Leveler
	mu     *sync.Mutex
	prefix string // accumulated "key=val " and "group." fragments
}

// NewConsoleHandler returns a ConsoleHandler writing to out at the given level.
func NewConsoleHandler(out io.Writer, level slog.Leveler) *ConsoleHandler {
	return &ConsoleHandler{out: out, level: level, mu: &sync.Mutex{}}
}

// Enabled reports whether records at the given level are handled.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes the record's message, colored by level.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	msg := h.prefix + r.Message
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "file" {
			msg += " " + _fileStyle.Render(a.Value.String())
			return false
		}
		return true
	})

	switch {
	case r.Level >= slog.LevelError:
		msg = _errStyle.Render(msg)
	case r.Level >= slog.LevelWarn:
		msg = _warnStyle.Render(msg)
	case r.Level < slog.LevelInfo:
		msg = _debugStyle.Render(msg)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, msg+"\n")
	return err
}

// WithAttrs returns a handler that prepends the attributes to every message.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	prefix := h.prefix
	for _, a := range attrs {
		prefix += a.Key + "=" + a.Value.String() + " "
	}
	return &ConsoleHandler{out: h.out, level: h.level, mu: h.mu, prefix: prefix}
}

// WithGroup returns a handler that prepends the group name to every message.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ConsoleHandler{out: h.out, level: h.level, mu: h.mu, prefix: h.prefix + name + "."}
}

// NewLogger creates a logger for the given output format and level.
// Supported formats: "pretty", "json", "text".
func NewLogger(out io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	var handler slog.Handler
	switch format {
	case "pretty":
		handler = NewConsoleHandler(out, level)
	case "json":
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	default:
		return nil, fmt.Errorf("format %q: %w", format, ErrUnknownFormat)
	}
	return slog.New(handler), nil
}
