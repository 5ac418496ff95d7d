package mail

import (
	"fmt"
	"net/smtp"
)

// Sender delivers a single mail. The outbox consumer and the synchronous
// contact endpoint are its only callers.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender sends plain-text mail over authenticated SMTP.
type SMTPSender struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTPSender creates an SMTPSender. An unconfigured host is allowed so
// dev environments without SMTP still run; Send then fails (and the failure
// lands in the notification log like any other delivery error).
func NewSMTPSender(host, port, user, pass, from string) *SMTPSender {
	return &SMTPSender{host: host, port: port, user: user, pass: pass, from: from}
}

// Send delivers a plain-text mail.
func (s *SMTPSender) Send(to, subject, body string) error {
	if s.host == "" {
		return fmt.Errorf("smtp not configured")
	}

	msg := "From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		body + "\r\n"

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	return smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, []byte(msg))
}
