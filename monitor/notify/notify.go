// Package notify delivers frozen-verdict alerts over SMTP.
package notify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sarbanha/openvpn-monitor/monitor"
	mail "github.com/wneessen/go-mail"
)

// Mailer sends one alert mail per frozen verdict to every configured
// recipient. Delivery is best-effort by contract: the restart has already
// happened by the time Notify is called.
type Mailer struct {
	cfg monitor.MailConfig
}

var _ monitor.Notifier = (*Mailer)(nil)

// NewMailer creates a mailer from the mail configuration.
func NewMailer(cfg monitor.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Notify composes and sends the alert.
func (m *Mailer) Notify(ctx context.Context, alert monitor.Alert) error {
	client, err := m.client()
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return errors.Wrap(err, "invalid sender address")
	}
	if err := msg.To(m.cfg.RecipientList()...); err != nil {
		return errors.Wrap(err, "invalid recipient address")
	}

	msg.Subject(alert.Subject())
	msg.SetBodyString(mail.TypeTextPlain, alert.Body())

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, "failed to send alert")
	}

	return nil
}

// client builds an SMTP client for the configured security mode.
// Authentication is attempted only when a username is configured.
func (m *Mailer) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
	}

	switch m.cfg.Security {
	case monitor.MailSecurityTLS:
		opts = append(opts, mail.WithSSL())
	case monitor.MailSecurityStartTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create smtp client")
	}

	return client, nil
}
