package logbuf

import (
	"context"
	"log/slog"
)

// Handler tees slog records into a Buffer before forwarding them to
// the wrapped handler. The buffer captures every level; the wrapped
// handler keeps its own filter.
type Handler struct {
	next   slog.Handler
	buf    *Buffer
	bound  []slog.Attr
	prefix string
}

// NewHandler wraps next so every record is also retained in buf.
func NewHandler(next slog.Handler, buf *Buffer) *Handler {
	return &Handler{next: next, buf: buf}
}

func (h *Handler) Enabled(context.Context, slog.Level) bool { return true }

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var attrs map[string]any
	put := func(key string, v slog.Value) {
		if attrs == nil {
			attrs = make(map[string]any)
		}
		attrs[key] = flatten(v)
	}
	// Bound attrs carry the prefix they were added under.
	for _, a := range h.bound {
		put(a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		put(h.prefix+a.Key, a.Value)
		return true
	})

	h.buf.add(Entry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   attrs,
	})

	if h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

// flatten resolves slog values into JSON-friendly shapes. Errors become
// strings so they survive marshaling.
func flatten(v slog.Value) any {
	v = v.Resolve()
	raw := v.Any()
	if err, ok := raw.(error); ok {
		return err.Error()
	}
	return raw
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.bound = h.bound[:len(h.bound):len(h.bound)]
	for _, a := range attrs {
		clone.bound = append(clone.bound, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.prefix = h.prefix + name + "."
	return &clone
}
