package monitor

import (
	"context"
	"io"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Prober issues a single command against the OpenVPN management endpoint and
// returns the raw textual response.
type Prober interface {
	Query(ctx context.Context, command string) (string, error)
}

// ManagementProbe is a Prober backed by a plain TCP connection to the
// management interface. The protocol is opaque text in, text out: the command
// is written once and everything the endpoint sends back within the timeout
// is the response.
type ManagementProbe struct {
	Addr    string
	Timeout time.Duration
}

var _ Prober = (*ManagementProbe)(nil)

// NewManagementProbe creates a probe for the given host:port.
func NewManagementProbe(addr string, timeout time.Duration) *ManagementProbe {
	return &ManagementProbe{Addr: addr, Timeout: timeout}
}

// Query connects, sends the command and reads the response until the endpoint
// closes the connection or the timeout elapses. A timeout after at least one
// byte was received is a complete response, not an error: the management
// interface keeps the connection open after answering.
func (p *ManagementProbe) Query(ctx context.Context, command string) (string, error) {
	dialer := net.Dialer{Timeout: p.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return "", errors.Wrap(err, "failed to connect to management endpoint")
	}
	defer conn.Close()

	deadline := time.Now().Add(p.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}

	if _, err := io.WriteString(conn, command); err != nil {
		return "", errors.Wrap(err, "failed to send command")
	}

	out, err := io.ReadAll(conn)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() && len(out) > 0 {
			return string(out), nil
		}
		return string(out), errors.Wrap(err, "failed to read response")
	}

	return string(out), nil
}
