// Package alert delivers failure notifications. Delivery problems are logged
// and swallowed: alerting must never take the pipeline down with it.
package alert

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds the SMTP settings for the mail sink.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Project  string
}

// Sink accepts a free-text error message and its timestamp.
type Sink interface {
	Notify(message string, ts time.Time)
}

// NewSink returns a mail sink when SMTP is configured, otherwise a no-op.
func NewSink(cfg Config) Sink {
	if cfg.Host == "" || len(cfg.To) == 0 {
		log.Debug().Msg("SMTP not configured, alerts disabled")
		return Noop{}
	}
	return &Mailer{cfg: cfg}
}

// Mailer sends error reports over SMTP.
type Mailer struct {
	cfg Config
}

const bodyTemplate = `<html>
<body>
<p>Greetings Team,</p>

<p>An error occurred in the <b>%s</b> that requires immediate attention.<br>
Here are the key details:</p>

<p>Error Message: <b>%s</b></p>
<p>Timestamp: <b>%s</b></p>

<p>Best regards,<br>
<i>Information Systems Team</i></p>
</body>
</html>
`

// Notify emails the error report to all configured recipients.
func (m *Mailer) Notify(message string, ts time.Time) {
	body := fmt.Sprintf(bodyTemplate, m.cfg.Project, message, ts.UTC().Format(time.RFC3339))

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + strings.Join(m.cfg.To, ", "),
		"Subject: Error Report",
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.From, m.cfg.To, []byte(msg)); err != nil {
		log.Error().Err(err).Str("server", addr).Msg("Failed to send alert email")
		return
	}
	log.Info().Strs("recipients", m.cfg.To).Msg("Alert email sent")
}

// Noop is the sink used when alerting is unconfigured.
type Noop struct{}

// Notify discards the message.
func (Noop) Notify(string, time.Time) {}
