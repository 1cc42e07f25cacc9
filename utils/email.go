package utils

import (
	"fmt"
	"net/smtp"

	"leadstore/config"
)

// SMTPSender sends plain-text notification mail over SMTP.
type SMTPSender struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.EmailFrom,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	if s.host == "" {
		return fmt.Errorf("smtp not configured")
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body,
	))

	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	addr := s.host + ":" + s.port
	return smtp.SendMail(addr, auth, s.from, []string{to}, msg)
}
