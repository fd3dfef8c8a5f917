// v1
// internal/netlink/netlink.go
package netlink

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Link reports whether the controller can reach the network. On the target
// hardware the OS owns the WiFi association; the controller only needs to
// know when connectivity is back so it can redial the broker.
type Link interface {
	// WaitUp blocks until the link is reachable or the context ends,
	// probing every interval.
	WaitUp(ctx context.Context, interval time.Duration) error
	IsUp() bool
}

// ProbeLink checks reachability by opening a TCP connection to a known
// address, usually the broker host itself.
type ProbeLink struct {
	addr    string
	timeout time.Duration
	log     *slog.Logger
}

func NewProbeLink(addr string, timeout time.Duration, log *slog.Logger) *ProbeLink {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ProbeLink{
		addr:    addr,
		timeout: timeout,
		log:     log.With(slog.String("component", "netlink")),
	}
}

func (p *ProbeLink) IsUp() bool {
	conn, err := net.DialTimeout("tcp", p.addr, p.timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (p *ProbeLink) WaitUp(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	for {
		if p.IsUp() {
			return nil
		}
		p.log.Warn("network unreachable, retrying",
			slog.String("probe", p.addr),
			slog.Duration("interval", interval))
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for network: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
}
