package monitor

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Mail security modes.
const (
	MailSecurityNone     = "none"     // plaintext SMTP
	MailSecurityStartTLS = "starttls" // opportunistic upgrade
	MailSecurityTLS      = "tls"      // implicit TLS
)

// Config is the immutable configuration assembled once at process start and
// passed to each component.
type Config struct {
	Management ManagementConfig `yaml:"management"`

	// Service is the service-manager unit to restart on a frozen verdict.
	Service string `yaml:"service"`

	StatePath   string `yaml:"state_path"`
	JournalPath string `yaml:"journal_path"`

	// LockTimeoutMs bounds how long one tick waits for the cross-invocation
	// state lock before aborting.
	LockTimeoutMs int `yaml:"lock_timeout_ms"`

	Mail MailConfig `yaml:"mail"`
}

// ManagementConfig locates the OpenVPN management endpoint.
type ManagementConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// MailConfig configures the alert notifier.
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Security string `yaml:"security"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`

	// Recipients is a comma-separated address list.
	Recipients string `yaml:"recipients"`
}

// DefaultConfig returns the built-in defaults, matching a stock local OpenVPN
// deployment with mail disabled.
func DefaultConfig() Config {
	return Config{
		Management: ManagementConfig{
			Host:      "127.0.0.1",
			Port:      38248,
			TimeoutMs: 15000,
		},
		Service:       "openvpn-server@server",
		StatePath:     "/var/lib/openvpn-monitor/fingerprint",
		JournalPath:   "/var/log/openvpn-monitor.log",
		LockTimeoutMs: 5000,
		Mail: MailConfig{
			Port:     25,
			Security: MailSecurityNone,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults. An empty path or
// a missing file returns pure defaults; any other read or parse failure is an
// error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Stock installs run without a config file.
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrap(err, "failed to read config")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse config")
	}

	return cfg, nil
}

// Validate checks configuration correctness. It performs declarative
// validation only and MUST NOT mutate the configuration.
func Validate(cfg Config) error {
	if cfg.Management.Host == "" {
		return errors.New("management.host must be set")
	}
	if cfg.Management.Port < 1 || cfg.Management.Port > 65535 {
		return fmt.Errorf("management.port %d out of range", cfg.Management.Port)
	}
	if cfg.Management.TimeoutMs <= 0 {
		return errors.New("management.timeout_ms must be positive")
	}
	if cfg.Service == "" {
		return errors.New("service must be set")
	}
	if cfg.StatePath == "" {
		return errors.New("state_path must be set")
	}
	if cfg.JournalPath == "" {
		return errors.New("journal_path must be set")
	}
	if cfg.LockTimeoutMs <= 0 {
		return errors.New("lock_timeout_ms must be positive")
	}

	m := cfg.Mail
	switch m.Security {
	case MailSecurityNone, MailSecurityStartTLS, MailSecurityTLS:
	default:
		return fmt.Errorf("mail.security %q is not one of none, starttls, tls", m.Security)
	}

	if !m.Enabled {
		return nil
	}

	if m.Host == "" {
		return errors.New("mail.host must be set when mail is enabled")
	}
	if m.Port < 1 || m.Port > 65535 {
		return fmt.Errorf("mail.port %d out of range", m.Port)
	}
	if m.From == "" {
		return errors.New("mail.from must be set when mail is enabled")
	}
	if len(m.RecipientList()) == 0 {
		return errors.New("mail.recipients must list at least one address")
	}

	return nil
}

// Addr returns the endpoint as host:port.
func (c ManagementConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Timeout returns the probe timeout as a duration.
func (c ManagementConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// LockTimeout returns the state lock acquisition bound as a duration.
func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

// RecipientList splits the comma-separated recipients, dropping empty
// entries.
func (m MailConfig) RecipientList() []string {
	var list []string
	for _, addr := range strings.Split(m.Recipients, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			list = append(list, addr)
		}
	}
	return list
}
