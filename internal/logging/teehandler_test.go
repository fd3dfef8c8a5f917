package logging

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type fakePublisher struct {
	connected bool
	topics    []string
	payloads  []string
}

func (f *fakePublisher) Publish(topic, payload string) error {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) IsConnected() bool { return f.connected }

func newTee() (*TeeHandler, *slog.Logger) {
	h := NewTeeHandler(slog.NewTextHandler(io.Discard, nil), "RPi/Pico/Log")
	return h, slog.New(h)
}

func TestTeeMirrorsWhenConnected(t *testing.T) {
	h, log := newTee()
	pub := &fakePublisher{connected: true}
	h.SetPublisher(pub)

	log.Info("pump started")
	if len(pub.payloads) != 1 {
		t.Fatalf("got %d published records, want 1", len(pub.payloads))
	}
	if pub.topics[0] != "RPi/Pico/Log" {
		t.Fatalf("topic = %q", pub.topics[0])
	}
	if !strings.HasSuffix(pub.payloads[0], "[INFO] pump started") {
		t.Fatalf("payload = %q", pub.payloads[0])
	}
	stamp := strings.SplitN(pub.payloads[0], " [", 2)[0]
	if _, err := time.Parse("2006-01-02 15:04:05", stamp); err != nil {
		t.Fatalf("timestamp %q: %v", stamp, err)
	}
}

func TestTeeDropsWhenDisconnected(t *testing.T) {
	h, log := newTee()
	pub := &fakePublisher{connected: false}
	h.SetPublisher(pub)

	log.Warn("broker unreachable")
	if len(pub.payloads) != 0 {
		t.Fatalf("published %d records while disconnected", len(pub.payloads))
	}
}

func TestTeeWithoutPublisher(t *testing.T) {
	_, log := newTee()
	log.Info("no session attached yet") // must not panic
}

func TestTeeReachesDerivedLoggers(t *testing.T) {
	h, log := newTee()
	child := log.With(slog.String("component", "engine"))
	pub := &fakePublisher{connected: true}
	h.SetPublisher(pub)

	child.Error("sensor offline")
	if len(pub.payloads) != 1 {
		t.Fatalf("derived logger published %d records, want 1", len(pub.payloads))
	}
	if !strings.HasSuffix(pub.payloads[0], "[ERROR] sensor offline") {
		t.Fatalf("payload = %q", pub.payloads[0])
	}
}
