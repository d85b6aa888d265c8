package main

import (
	"errors"
	"fmt"
	"net/textproto"
	"strings"

	"github.com/wneessen/go-mail"
)

// AuthError marks an SMTP authentication rejection so operators can tell a
// bad app password from a transport problem.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("smtp authentication failed (check sender address and app password): %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SMTPSender delivers one composed message per run over an encrypted,
// authenticated session.
type SMTPSender struct {
	host       string
	port       int
	encryption string
	username   string
	password   string
}

func NewSMTPSender(cfg *Config) *SMTPSender {
	return &SMTPSender{
		host:       cfg.Settings.SMTP.Host,
		port:       cfg.Settings.SMTP.Port,
		encryption: cfg.Settings.SMTP.Encryption,
		username:   cfg.EmailFrom,
		password:   cfg.EmailPassword,
	}
}

// buildMessage turns the composed EmailMessage into a multipart/alternative
// mail message with the plain body first.
func buildMessage(em EmailMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(em.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(em.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(em.Subject)
	m.SetBodyString(mail.TypeTextPlain, em.PlainBody)
	m.AddAlternativeString(mail.TypeTextHTML, em.HTMLBody)
	return m, nil
}

// Send opens the session, authenticates, transmits the message, and closes
// the session. Authentication failures surface as AuthError.
func (s *SMTPSender) Send(em EmailMessage) error {
	m, err := buildMessage(em)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.username),
		mail.WithPassword(s.password),
	}
	if s.encryption == EncryptionImplicit {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}

	if err := client.DialAndSend(m); err != nil {
		if isAuthError(err) {
			return &AuthError{Err: err}
		}
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

// isAuthError detects SMTP authentication rejections (530/534/535).
func isAuthError(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "username and password not accepted") ||
		strings.Contains(msg, "authentication failed") ||
		strings.Contains(msg, "invalid credentials")
}
