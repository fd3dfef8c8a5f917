// v1
// internal/logging/teehandler.go
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Publisher is the subset of the broker session the tee needs.
type Publisher interface {
	Publish(topic, payload string) error
	IsConnected() bool
}

// TeeHandler wraps a slog.Handler and mirrors every record to a broker log
// topic so the dashboard can watch the controller live. Records are dropped
// silently while disconnected; the local handler is the source of truth.
type TeeHandler struct {
	inner slog.Handler
	topic string
	// shared across WithAttrs/WithGroup clones so a session attached on
	// the root handler reaches derived loggers too
	pub *atomic.Pointer[publisherBox]
}

type publisherBox struct{ p Publisher }

func NewTeeHandler(inner slog.Handler, topic string) *TeeHandler {
	return &TeeHandler{inner: inner, topic: topic, pub: new(atomic.Pointer[publisherBox])}
}

// SetPublisher swaps the active session. Safe to call while logging from
// other goroutines; nil detaches the tee.
func (h *TeeHandler) SetPublisher(p Publisher) {
	if p == nil {
		h.pub.Store(nil)
		return
	}
	h.pub.Store(&publisherBox{p: p})
}

func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	if box := h.pub.Load(); box != nil && box.p.IsConnected() {
		line := fmt.Sprintf("%s [%s] %s",
			r.Time.Format("2006-01-02 15:04:05"), r.Level.String(), r.Message)
		// best effort; a failed remote publish must not fail local logging
		_ = box.p.Publish(h.topic, line)
	}
	return h.inner.Handle(ctx, r)
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TeeHandler{inner: h.inner.WithAttrs(attrs), topic: h.topic, pub: h.pub}
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	return &TeeHandler{inner: h.inner.WithGroup(name), topic: h.topic, pub: h.pub}
}
