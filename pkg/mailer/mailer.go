package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/nbaparkdev/assettrack-ti/pkg/config"
)

// Message is a plain text notification email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer sends notification emails over SMTP. When disabled it logs and
// drops messages so the calling workflow never blocks on mail delivery.
type Mailer struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

func New(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers the message. Returns an error only on transport failure.
func (m *Mailer) Send(msg Message) error {
	if !m.cfg.Enabled {
		m.logger.Debug("mailer disabled, dropping message",
			zap.String("subject", msg.Subject),
			zap.Strings("to", msg.To),
		)
		return nil
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("mailer: no recipients")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, msg.To, []byte(b.String())); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}
