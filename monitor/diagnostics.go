package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/sarbanha/openvpn-monitor/monitor/exec"
)

const separatorWidth = 80

// CommandOutput is the captured output of one diagnostic command.
type CommandOutput struct {
	Command string `json:"command"`
	Code    int    `json:"code"`
	Stdout  string `json:"stdout,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
}

// Diagnostics is the evidence bundle collected on a frozen verdict before the
// service is restarted. Collection is best-effort: individual failures land in
// Errors and never abort the restart.
type Diagnostics struct {
	ServiceStatus CommandOutput `json:"service_status"`
	LoadStats     CommandOutput `json:"load_stats"`
	StatusOutput  string        `json:"status_output"`
	Errors        []string      `json:"errors,omitempty"`
}

// collectDiagnostics gathers the service-manager status, a load-stats probe
// and the raw status output of the tick being judged.
func collectDiagnostics(
	ctx context.Context, runner exec.Runner, prober Prober,
	service, statusOutput string) Diagnostics {

	d := Diagnostics{StatusOutput: statusOutput}

	res := runner.Run(ctx, "systemctl", "status", service, "--no-pager", "-l")
	d.ServiceStatus = CommandOutput{
		Command: "systemctl status " + service + " --no-pager -l",
		Code:    res.Code,
		Stdout:  res.Stdout,
		Stderr:  res.Stderr,
	}
	if res.Error != nil && res.Code == -1 {
		d.Errors = append(d.Errors, "service status: "+res.Error.Error())
	}

	loadStats, err := prober.Query(ctx, "load-stats")
	d.LoadStats = CommandOutput{
		Command: "load-stats",
		Stdout:  loadStats,
	}
	if err != nil {
		d.LoadStats.Code = -1
		d.Errors = append(d.Errors, "load-stats: "+err.Error())
	}

	return d
}

// Render builds the plaintext diagnostic block embedded into alert mails and
// the human-readable journal.
func (d Diagnostics) Render() string {
	var b strings.Builder

	writeOutput := func(out CommandOutput) {
		fmt.Fprintf(&b, "Command: %s\n", out.Command)
		fmt.Fprintf(&b, "Return code: %d\n", out.Code)
		if s := strings.TrimSpace(out.Stderr); s != "" {
			b.WriteString("STDERR:\n")
			b.WriteString(strings.TrimRight(out.Stderr, "\n"))
			b.WriteByte('\n')
		}
		b.WriteString("STDOUT:\n")
		b.WriteString(strings.TrimRight(out.Stdout, "\n"))
		b.WriteString("\n\n")
	}

	writeOutput(d.ServiceStatus)
	writeOutput(d.LoadStats)

	b.WriteString("Status output:\n")
	b.WriteString(strings.TrimRight(d.StatusOutput, "\n"))
	b.WriteByte('\n')

	if len(d.Errors) > 0 {
		b.WriteString("\nCollection errors:\n")
		for _, e := range d.Errors {
			b.WriteString("  " + e + "\n")
		}
	}

	return b.String()
}
