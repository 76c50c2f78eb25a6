// Package logger wraps log/slog with a handler that always mirrors
// output to stderr alongside an optional log file, matching how the
// RISC-V core expects trap/boot diagnostics to be visible on a
// terminal even when a log file is also configured. Grounded on
// util/logger/logger.go's mutex-guarded dual-writer handler.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler dual-writes formatted records to an optional file and,
// above debug level (or when debug is forced on), to stderr.
type Handler struct {
	out   io.Writer
	h     slog.Handler
	mu    *sync.Mutex
	debug bool
	attrs []slog.Attr // attributes added through WithAttrs, written before each record's own
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)
	return &Handler{out: h.out, h: h.h.WithAttrs(attrs), mu: h.mu, debug: h.debug, attrs: merged}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{out: h.out, h: h.h.WithGroup(name), mu: h.mu, debug: h.debug, attrs: h.attrs}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	formattedTime := r.Time.Format("2006/01/02 15:04:05")
	strs := []string{formattedTime, r.Level.String() + ":", r.Message}
	for _, a := range h.attrs {
		strs = append(strs, a.Key+"="+a.Value.String())
	}
	if r.NumAttrs() != 0 {
		r.Attrs(func(a slog.Attr) bool {
			strs = append(strs, a.Key+"="+a.Value.String())
			return true
		})
	}
	b := []byte(strings.Join(strs, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(b)
	}
	if h.debug || r.Level > slog.LevelDebug {
		_, err = os.Stderr.Write(b)
	}
	return err
}

// SetDebug toggles whether debug-level records are also mirrored to
// stderr (otherwise only Info-and-above is).
func (h *Handler) SetDebug(debug bool) {
	h.debug = debug
}

// New builds a Handler writing to file (may be nil for stderr-only
// operation) at the given level.
func New(file io.Writer, level slog.Level, debug bool) *Handler {
	return &Handler{
		out:   file,
		h:     slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}),
		mu:    &sync.Mutex{},
		debug: debug,
	}
}
