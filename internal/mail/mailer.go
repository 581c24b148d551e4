// Package mail sends the outbound notifications this service produces. Right
// now that is a single message: the password-reset link.
package mail

import (
	"fmt"
	"log/slog"

	gomail "gopkg.in/gomail.v2"
)

type Sender interface {
	SendPasswordReset(to, name, link string) error
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPSender) SendPasswordReset(to, name, link string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Password Reset Request - School Management System")
	m.SetBody("text/plain", fmt.Sprintf(`Hello %s,

You have requested to reset your password for School Management System.

Please click the link below to reset your password:
%s

This link will expire in 1 hour.

If you did not request this password reset, please ignore this email.

Best regards,
School Management System Team
`, name, link))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send password reset mail: %w", err)
	}
	return nil
}

// LogSender is the dev fallback when no SMTP host is configured: the link is
// logged instead of mailed.
type LogSender struct {
	Log *slog.Logger
}

func (l LogSender) SendPasswordReset(to, name, link string) error {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("password reset link (smtp not configured)", "to", to, "link", link)
	return nil
}
