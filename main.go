package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sarbanha/openvpn-monitor/monitor"
	"github.com/sarbanha/openvpn-monitor/monitor/journal"
	"github.com/sarbanha/openvpn-monitor/monitor/notify"
	"github.com/sarbanha/openvpn-monitor/monitor/state"
)

var (
	configFile string
	logLines   int
	logFollow  bool
)

func init() {
	flag.StringVar(&configFile, "c", "/etc/openvpn-monitor/config.yaml", "config file path")
	flag.IntVar(&logLines, "n", 10, "journal records to show (log subcommand)")
	flag.BoolVar(&logFollow, "f", false, "follow the journal (log subcommand)")
	flag.Usage = func() {
		f := func(f string, v ...interface{}) {
			fmt.Fprintf(flag.CommandLine.Output(), f, v...)
		}

		f("Usage:\n")
		f("  %s -c <config> [timer|log]\n", filepath.Base(os.Args[0]))
		f("\n")
		f("Subcommands:\n")
		f("  (none)  run one monitoring tick\n")
		f("  timer   print systemd service and timer units for scheduling\n")
		f("  log     print recent journal records, -f to follow\n")
		f("\n")
		f("Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
}

func main() {
	switch flag.Arg(0) {
	case "timer":
		timer()
	case "log":
		if err := showLog(); err != nil {
			log.Fatalln(err)
		}
	case "":
		code, err := tick()
		if err != nil {
			log.Println(err)
		}
		os.Exit(code)
	default:
		log.Fatalf("unknown subcommand %q\n", flag.Arg(0))
	}
}

// tick runs one invocation of the monitor. The exit code is the scheduler's
// only feedback channel, so it is computed even when an error is returned.
func tick() (int, error) {
	cfg, err := loadConfig()
	if err != nil {
		return 1, err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lockCtx, cancelLock := context.WithTimeout(ctx, cfg.LockTimeout())
	j, err := journal.NewFileLockJournalerWait(lockCtx, cfg.JournalPath)
	cancelLock()
	if err != nil {
		return 1, errors.Wrap(err, "failed to acquire journal lock")
	}
	defer j.Close()

	journaler := journal.MultiWriter(j, journal.NewHumanWriter(os.Stderr))

	var notifier monitor.Notifier
	if cfg.Mail.Enabled {
		notifier = notify.NewMailer(cfg.Mail)
	}

	m := monitor.NewMonitor(cfg, journaler, state.NewStore(cfg.StatePath), notifier)
	return m.Tick(ctx)
}

// timer prints systemd units implementing the external scheduler contract:
// the monitor is re-invoked at a fixed cadence and is idempotent per tick.
func timer() {
	c := strconv.Quote(configFile)

	lines := [...]string{
		"# openvpn-monitor.service",
		"[Unit]",
		"Description=OpenVPN freeze monitor tick",
		"",
		"[Service]",
		"Type=oneshot",
		"ExecStart=" + os.Args[0] + " -c " + c,
		"",
		"# openvpn-monitor.timer",
		"[Unit]",
		"Description=Run the OpenVPN freeze monitor every 5 minutes",
		"",
		"[Timer]",
		"OnBootSec=5min",
		"OnUnitActiveSec=5min",
		"",
		"[Install]",
		"WantedBy=timers.target",
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}

// showLog prints the most recent journal records in their human-readable
// form, optionally following the journal for new ones.
func showLog() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	events, err := journal.LastEvents(cfg.JournalPath, logLines)
	if err != nil {
		return errors.Wrap(err, "failed to read journal")
	}

	for _, ev := range events {
		fmt.Print(journal.RenderEvent(ev.Time, ev.Data))
	}

	if !logFollow {
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fl, err := journal.Follow(ctx, cfg.JournalPath)
	if err != nil {
		return errors.Wrap(err, "failed to follow journal")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-fl.Errors:
			log.Println("journal follow:", err)
		case ev := <-fl.Events:
			fmt.Print(journal.RenderEvent(ev.Time, ev.Data))
		}
	}
}

func loadConfig() (monitor.Config, error) {
	cfg, err := monitor.LoadConfig(configFile)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to load config")
	}

	if err := monitor.Validate(cfg); err != nil {
		return cfg, errors.Wrap(err, "invalid config")
	}

	return cfg, nil
}
