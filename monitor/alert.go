package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Alert is the message composed on a frozen verdict, after the restart was
// already issued.
type Alert struct {
	Hostname        string
	Service         string
	Time            time.Time
	Condition       string
	Fingerprint     Fingerprint
	RestartExitCode int
	Diagnostics     Diagnostics
}

// Notifier delivers an alert to the configured administrators. Delivery is
// best-effort; a failed delivery must not undo or block the recovery.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Subject returns the mail subject line.
func (a Alert) Subject() string {
	return fmt.Sprintf("[openvpn-monitor] %s on %s: %s restarted", a.Condition, a.Hostname, a.Service)
}

// Body returns the plaintext mail body with the full diagnostic block.
func (a Alert) Body() string {
	var b strings.Builder

	sep := strings.Repeat("=", separatorWidth)

	b.WriteString(sep + "\n")
	fmt.Fprintf(&b, "Host: %s\n", a.Hostname)
	fmt.Fprintf(&b, "Service: %s\n", a.Service)
	fmt.Fprintf(&b, "Timestamp: %s\n", a.Time.Format(time.RFC3339))
	fmt.Fprintf(&b, "Condition: %s (fingerprint=%s)\n", a.Condition, a.Fingerprint)
	fmt.Fprintf(&b, "Action: systemctl restart %s\n", a.Service)
	fmt.Fprintf(&b, "Restart return code: %d\n", a.RestartExitCode)
	b.WriteString("\n")
	b.WriteString(a.Diagnostics.Render())
	b.WriteString(sep + "\n")

	return b.String()
}
