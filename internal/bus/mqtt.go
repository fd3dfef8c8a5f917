// v2
// internal/bus/mqtt.go
package bus

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Conn is the broker surface the control loop depends on. The engine owns
// reconnection policy, so the session itself never auto-reconnects.
type Conn interface {
	Drain(max int) []Message
	Publish(topic, payload string) error
	IsConnected() bool
	Close()
}

// Options configures a broker session.
type Options struct {
	BrokerURL string
	Username  string
	Password  string
	ClientID  string
	UseTLS    bool
	Topics    Topics
	// InboxSize bounds the buffer between paho's delivery goroutine and
	// the control loop. When full, the oldest message is dropped.
	InboxSize int
}

// Session wraps a paho client. Paho delivers inbound messages on its own
// goroutine; the session decodes them immediately and parks them in a
// bounded inbox that the control loop drains synchronously each poll.
type Session struct {
	client mqtt.Client
	topics Topics
	inbox  chan Message
	log    *slog.Logger
}

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Dial connects to the broker and subscribes the soil and configuration
// topics. A failed connect or subscribe returns an error with the client
// torn down; the caller retries on its own schedule.
func Dial(opts Options, log *slog.Logger) (*Session, error) {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 256
	}
	s := &Session{
		topics: opts.Topics,
		inbox:  make(chan Message, opts.InboxSize),
		log:    log.With(slog.String("component", "bus")),
	}

	co := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(false).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(30 * time.Second)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	if opts.UseTLS {
		co.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warn("broker connection lost", slog.String("error", err.Error()))
	})

	s.client = mqtt.NewClient(co)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.BrokerURL, token.Error())
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		s.push(Decode(s.topics, msg.Topic(), msg.Payload()))
	}
	for _, topic := range opts.Topics.SubscribeTopics() {
		if token := s.client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
			s.client.Disconnect(250)
			return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
	}
	s.log.Info("connected to broker",
		slog.String("broker", opts.BrokerURL),
		slog.Int("topics", len(opts.Topics.SubscribeTopics())))
	return s, nil
}

// push parks a message in the inbox, evicting the oldest entry when full.
// Called from paho's delivery goroutine.
func (s *Session) push(m Message) {
	for {
		select {
		case s.inbox <- m:
			return
		default:
		}
		select {
		case old := <-s.inbox:
			s.log.Warn("inbox full, dropping oldest message",
				slog.String("kind", old.Kind.String()),
				slog.String("topic", old.Topic))
		default:
		}
	}
}

// Drain returns up to max buffered messages without blocking. max <= 0
// drains everything currently queued.
func (s *Session) Drain(max int) []Message {
	if max <= 0 {
		max = cap(s.inbox)
	}
	var out []Message
	for len(out) < max {
		select {
		case m := <-s.inbox:
			out = append(out, m)
		default:
			return out
		}
	}
	return out
}

// Publish sends a payload at QoS 0 and waits for the token.
func (s *Session) Publish(topic, payload string) error {
	token := s.client.Publish(topic, 0, false, []byte(payload))
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (s *Session) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

func (s *Session) Close() {
	s.client.Disconnect(250)
}
