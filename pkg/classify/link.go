package classify

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"sync/atomic"
	"time"
)

// StaticLink is a Link with a fixed state.
type StaticLink bool

// Up implements Link.
func (s StaticLink) Up() bool {
	return bool(s)
}

// DialFunc opens a connection, e.g. (*net.Dialer).DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Association is the network association established at startup.
// Once association fails it stays down; there is no later reattempt.
type Association struct {
	up   atomic.Bool
	addr string
}

// Up implements Link.
func (a *Association) Up() bool {
	return a.up.Load()
}

// Addr returns the probed host:port.
func (a *Association) Addr() string {
	return a.addr
}

// Associate probes the endpoint host up to attempts times, waiting interval
// between attempts. A nil dial uses a net.Dialer bounded by interval.
func Associate(ctx context.Context, endpoint string, attempts int, interval time.Duration, dial DialFunc) (*Association, error) {
	addr, err := hostPort(endpoint)
	if err != nil {
		return nil, err
	}
	if attempts <= 0 {
		attempts = 1
	}
	if dial == nil {
		d := &net.Dialer{Timeout: interval}
		dial = d.DialContext
	}

	a := &Association{addr: addr}
	log.Printf("Associating with %s", addr)

	for i := 0; i < attempts; i++ {
		conn, err := dial(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			a.up.Store(true)
			log.Printf("Network associated after %d attempt(s)", i+1)
			return a, nil
		}

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			log.Printf("Association cancelled: %v", ctx.Err())
			return a, nil
		case <-time.After(interval):
		}
	}

	log.Printf("Failed to associate with %s after %d attempts, running disconnected", addr, attempts)
	return a, nil
}

// hostPort extracts host:port from an endpoint URL, defaulting the port by scheme.
func hostPort(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}

	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
