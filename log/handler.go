// Package log provides the slog.Handler that routes a guest's __console_log
// output into the host's structured logging, tagging every record so guest
// console output is distinguishable from host-side lifecycle logs while
// still flowing through the same sink, leveling, and redirection the
// embedder configured for slog.
package log

import (
	"context"
	"log/slog"
)

// GuestHandler wraps a next slog.Handler, forwarding every record with a
// fixed "source=guest" attribute and (when set) a host_id attribute. It
// exists so that Host.imports's ConsoleLog hook can log guest console
// output through the normal slog pipeline instead of writing to a Writer
// directly, letting the embedder's handler configuration (JSON vs text,
// minimum level, output destination) apply uniformly to both host and
// guest log lines.
type GuestHandler struct {
	next   slog.Handler
	hostID uint64
}

// HandlerOption configures a GuestHandler at construction.
type HandlerOption func(*GuestHandler)

// WithHostID attaches a host_id attribute to every record the handler
// forwards, so guest console lines from different Hosts can be told apart
// in a shared log stream.
func WithHostID(id uint64) HandlerOption {
	return func(h *GuestHandler) { h.hostID = id }
}

// NewHandler wraps next in a GuestHandler. If next is nil, slog.Default's
// handler is used.
func NewHandler(next slog.Handler, opts ...HandlerOption) *GuestHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	h := &GuestHandler{next: next}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled delegates to the wrapped handler.
func (h *GuestHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle tags record with source=guest and, if set, host_id, then forwards
// it to the wrapped handler.
func (h *GuestHandler) Handle(ctx context.Context, record slog.Record) error {
	record = record.Clone()
	record.AddAttrs(slog.String("source", "guest"))
	if h.hostID != 0 {
		record.AddAttrs(slog.Uint64("host_id", h.hostID))
	}
	return h.next.Handle(ctx, record)
}

// WithAttrs delegates to the wrapped handler's WithAttrs, preserving the
// GuestHandler's own source/host_id tagging around it.
func (h *GuestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &GuestHandler{next: h.next.WithAttrs(attrs), hostID: h.hostID}
}

// WithGroup delegates grouping to the wrapped handler.
func (h *GuestHandler) WithGroup(name string) slog.Handler {
	return &GuestHandler{next: h.next.WithGroup(name), hostID: h.hostID}
}
