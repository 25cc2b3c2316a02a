// Package probe answers one question: does a TCP endpoint accept
// connections right now. Both the status view and the post-configuration
// reachability sweep are built on it.
package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Prober reports whether host:port accepts a TCP connection.
type Prober interface {
	Reachable(ctx context.Context, host string, port int) bool
}

// Dialer probes with a single bounded IPv4 dial. Fabric addresses are
// link-local IPv4, so the dial pins tcp4 to avoid a useless IPv6 attempt.
type Dialer struct {
	// Timeout bounds one probe. Zero or negative means 1s.
	Timeout time.Duration
}

// Reachable dials host:port once and closes the connection immediately.
func (d Dialer) Reachable(ctx context.Context, host string, port int) bool {
	dialer := net.Dialer{Timeout: d.timeout()}
	conn, err := dialer.DialContext(ctx, "tcp4", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (d Dialer) timeout() time.Duration {
	if d.Timeout <= 0 {
		return time.Second
	}
	return d.Timeout
}
