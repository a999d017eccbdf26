package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Handler is a slog.Handler that writes human-readable lines with the
// attributes rendered as compact JSON.
type Handler struct {
	opts  *slog.HandlerOptions
	out   io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
	group string
}

// NewHandler creates a new Handler writing to stdout. Passing nil opts uses
// slog defaults.
func NewHandler(opts *slog.HandlerOptions) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &Handler{
		opts: opts,
		out:  os.Stdout,
		mu:   &sync.Mutex{},
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}

	return level >= minLevel
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields[h.key(a.Key)] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[h.key(a.Key)] = a.Value.Any()

		return true
	})

	line := fmt.Sprintf("%s [%s] %s", r.Time.Format(time.RFC3339), r.Level.String(), r.Message)
	if len(fields) > 0 {
		payload, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		line += " " + string(payload)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.out, line)

	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)

	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.group = name

	return &clone
}

func (h *Handler) key(k string) string {
	if h.group == "" {
		return k
	}

	return h.group + "." + k
}
