package monitor

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sarbanha/openvpn-monitor/monitor/exec"
)

// statusCommand is the management command whose output is fingerprinted. A
// live server rolls the byte counters in it between ticks.
const statusCommand = "status"

// StateHandle is an exclusively locked view of the fingerprint store. The
// lock is held from Acquire until Close, spanning the whole
// read-compare-write sequence of one tick.
type StateHandle interface {
	// Read returns the previous tick's fingerprint, or the zero Fingerprint
	// if no tick has completed yet.
	Read() (Fingerprint, error)
	// Write overwrites the stored fingerprint.
	Write(Fingerprint) error
	// Close releases the lock.
	Close() error
}

// StateAcquirer hands out locked state handles, blocking until the lock is
// acquired or the context expires.
type StateAcquirer interface {
	Acquire(ctx context.Context) (StateHandle, error)
}

// Monitor runs one poll-detect-act-notify tick. It holds no state of its own
// between ticks; everything persistent lives in the fingerprint store and the
// journal, so the process is safe to re-invoke at any cadence.
type Monitor struct {
	cfg      Config
	j        Journaler
	hostname string

	store    StateAcquirer
	prober   Prober
	runner   exec.Runner
	notifier Notifier // nil when mail is disabled
}

// NewMonitor assembles a monitor from the given configuration. The notifier
// may be nil, in which case frozen verdicts are journaled but not mailed.
func NewMonitor(cfg Config, j Journaler, store StateAcquirer, notifier Notifier) *Monitor {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &Monitor{
		cfg:      cfg,
		j:        j,
		hostname: hostname,
		store:    store,
		prober:   NewManagementProbe(cfg.Management.Addr(), cfg.Management.Timeout()),
		runner:   exec.NewSystemRunner(),
		notifier: notifier,
	}
}

// Tick runs one full invocation and returns the process exit code. A healthy
// verdict exits 0; a frozen verdict propagates the restart command's exit
// code; lock and state errors abort before any mutation and exit 1.
func (m *Monitor) Tick(ctx context.Context) (int, error) {
	lockCtx, cancel := context.WithTimeout(ctx, m.cfg.LockTimeout())
	defer cancel()

	st, err := m.store.Acquire(lockCtx)
	if err != nil {
		return 1, errors.Wrap(err, "failed to acquire state lock")
	}
	defer st.Close()

	output, probeErr := m.prober.Query(ctx, statusCommand)
	current := NewFingerprint(output)

	previous, err := st.Read()
	if err != nil {
		return 1, errors.Wrap(err, "failed to read previous fingerprint")
	}

	var ev Event

	switch {
	case previous.IsZero():
		// No history to judge against, even when the probe itself failed:
		// record the failure, store the fingerprint and judge next tick,
		// like the first run of any other output.
		warn(m.j, "probe", probeErr)
		ev = &EventFirstRun{Fingerprint: current}

	case probeErr == nil && Evaluate(previous, current) == VerdictHealthy:
		ev = &EventProbeHealthy{Fingerprint: current}

	default:
		return m.recover(ctx, st, output, current, probeErr)
	}

	if err := m.j.Write(ev); err != nil {
		return 1, errors.Wrap(err, "failed to journal verdict")
	}
	if err := st.Write(current); err != nil {
		return 1, errors.Wrap(err, "failed to store fingerprint")
	}

	return 0, nil
}

// recover handles a frozen (or unreachable, which is treated the same)
// verdict: diagnostics, restart, journal, alert, state update.
func (m *Monitor) recover(
	ctx context.Context, st StateHandle,
	output string, current Fingerprint, probeErr error) (int, error) {

	diag := collectDiagnostics(ctx, m.runner, m.prober, m.cfg.Service, output)

	restart := m.runner.Run(ctx, "systemctl", "restart", m.cfg.Service)

	var restartErr string
	if restart.Error != nil {
		restartErr = restart.Error.Error()
	}

	condition := "status fingerprint unchanged"
	var ev Event

	if probeErr != nil {
		condition = "management endpoint unreachable"
		ev = &EventProbeUnreachable{
			Service:         m.cfg.Service,
			Fingerprint:     current,
			Error:           probeErr.Error(),
			Diagnostics:     diag,
			RestartExitCode: restart.Code,
			RestartError:    restartErr,
		}
	} else {
		ev = &EventServiceFrozen{
			Service:         m.cfg.Service,
			Fingerprint:     current,
			Diagnostics:     diag,
			RestartExitCode: restart.Code,
			RestartError:    restartErr,
		}
	}

	if err := m.j.Write(ev); err != nil {
		return 1, errors.Wrap(err, "failed to journal verdict")
	}

	if m.notifier != nil {
		alert := Alert{
			Hostname:        m.hostname,
			Service:         m.cfg.Service,
			Time:            time.Now(),
			Condition:       condition,
			Fingerprint:     current,
			RestartExitCode: restart.Code,
			Diagnostics:     diag,
		}

		if err := m.notifier.Notify(ctx, alert); err != nil {
			warn(m.j, "notifier", err)
		} else if err := m.j.Write(&EventAlertSent{Recipients: m.cfg.Mail.RecipientList()}); err != nil {
			return 1, errors.Wrap(err, "failed to journal alert")
		}
	}

	// The restart should change the status output; storing the stale
	// fingerprint lets the next tick observe that and clear the condition.
	if err := st.Write(current); err != nil {
		return 1, errors.Wrap(err, "failed to store fingerprint")
	}

	if restart.Code > 0 {
		return restart.Code, nil
	}
	if restart.Code < 0 {
		return 1, nil
	}

	return 0, nil
}
