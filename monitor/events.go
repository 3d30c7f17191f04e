package monitor

// eventType describes an event type.
type eventType = string

const (
	eventWarning          eventType = "warning"
	eventFirstRun         eventType = "first run"
	eventProbeHealthy     eventType = "probe healthy"
	eventServiceFrozen    eventType = "service frozen"
	eventProbeUnreachable eventType = "probe unreachable"
	eventAlertSent        eventType = "alert sent"
)

// Event is an interface describing known events.
type Event interface {
	Type() string
	event()
}

// NewEvent creates a new event from the given event type. It is used primarily
// for decoding events from its type. Nil is returned if the event type is
// unknown.
func NewEvent(eventType string) Event {
	switch eventType {
	case eventWarning:
		return &EventWarning{}
	case eventFirstRun:
		return &EventFirstRun{}
	case eventProbeHealthy:
		return &EventProbeHealthy{}
	case eventServiceFrozen:
		return &EventServiceFrozen{}
	case eventProbeUnreachable:
		return &EventProbeUnreachable{}
	case eventAlertSent:
		return &EventAlertSent{}
	default:
		return nil
	}
}

// EventWarning is emitted when a non-fatal error occurs, such as a failed
// diagnostics command or an undeliverable alert mail.
type EventWarning struct {
	Component string `json:"component"`
	Error     string `json:"error"`
}

func (ev *EventWarning) Type() string { return eventWarning }
func (ev *EventWarning) event()       {}

// EventFirstRun is emitted on the first tick ever, when no previous
// fingerprint exists to compare against. The verdict is always healthy.
type EventFirstRun struct {
	Fingerprint Fingerprint `json:"fingerprint"`
}

func (ev *EventFirstRun) Type() string { return eventFirstRun }
func (ev *EventFirstRun) event()       {}

// EventProbeHealthy is emitted when the status output changed since the
// previous tick, meaning the service is live.
type EventProbeHealthy struct {
	Fingerprint Fingerprint `json:"fingerprint"`
}

func (ev *EventProbeHealthy) Type() string { return eventProbeHealthy }
func (ev *EventProbeHealthy) event()       {}

// EventServiceFrozen is emitted when the status output is byte-identical to
// the previous tick's, meaning the service stopped updating its counters. It
// records the recovery taken within the same tick.
type EventServiceFrozen struct {
	Service         string      `json:"service"`
	Fingerprint     Fingerprint `json:"fingerprint"`
	Diagnostics     Diagnostics `json:"diagnostics"`
	RestartExitCode int         `json:"restart_exit_code"`
	RestartError    string      `json:"restart_error,omitempty"`
}

func (ev *EventServiceFrozen) Type() string { return eventServiceFrozen }
func (ev *EventServiceFrozen) event()       {}

// EventProbeUnreachable is emitted when the management endpoint cannot be
// probed at all. It is handled like a frozen service, since an unreachable
// management interface is itself symptomatic of a stuck process, but it is
// journaled distinctly so the two conditions can be told apart.
type EventProbeUnreachable struct {
	Service         string      `json:"service"`
	Fingerprint     Fingerprint `json:"fingerprint"`
	Error           string      `json:"error"`
	Diagnostics     Diagnostics `json:"diagnostics"`
	RestartExitCode int         `json:"restart_exit_code"`
	RestartError    string      `json:"restart_error,omitempty"`
}

func (ev *EventProbeUnreachable) Type() string { return eventProbeUnreachable }
func (ev *EventProbeUnreachable) event()       {}

// EventAlertSent is emitted after the alert mail was accepted for delivery to
// the configured recipients.
type EventAlertSent struct {
	Recipients []string `json:"recipients"`
}

func (ev *EventAlertSent) Type() string { return eventAlertSent }
func (ev *EventAlertSent) event()       {}
