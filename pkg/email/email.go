// Package email sends templated mail over SMTP. It is used to deliver
// magic links.
package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotConfigured    = errors.New("email: SMTP not configured")
	ErrInvalidRecipient = errors.New("email: invalid recipient")
	ErrSendFailed       = errors.New("email: send failed")
	// ErrHeaderInjection is returned when a header value contains CR or LF.
	ErrHeaderInjection = errors.New("email: header value contains a line break")
)

const defaultTimeout = 30 * time.Second

// Config holds SMTP settings.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	FromName   string
	TLS        bool // STARTTLS after connecting
	SkipVerify bool
	Timeout    time.Duration
}

// Message is a single HTML mail.
type Message struct {
	To      []string
	Subject string
	Body    string
	Headers map[string]string
}

// SMTPSender delivers messages over one SMTP session per message.
type SMTPSender struct {
	config    Config
	templates *TemplateEngine
	now       func() time.Time
}

// NewSMTPSender creates a new SMTP sender.
func NewSMTPSender(cfg Config) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &SMTPSender{
		config:    cfg,
		templates: NewTemplateEngine(),
		now:       time.Now,
	}
}

// IsConfigured reports whether host, port and sender are set.
func (s *SMTPSender) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port > 0 && s.config.From != ""
}

// SendTemplate renders tmpl with data and sends it to a single recipient.
func (s *SMTPSender) SendTemplate(ctx context.Context, to string, tmpl Template, data any) error {
	subject, body, err := s.templates.Render(tmpl, data)
	if err != nil {
		return fmt.Errorf("email: render %s: %w", tmpl, err)
	}
	return s.Send(ctx, &Message{To: []string{to}, Subject: subject, Body: body})
}

// Send delivers msg. Header values are checked before any connection is made.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return ErrInvalidRecipient
	}
	if err := checkHeaders(msg); err != nil {
		return err
	}

	rcpts := make([]*mail.Address, 0, len(msg.To))
	for _, to := range msg.To {
		addr, err := mail.ParseAddress(to)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidRecipient, to)
		}
		rcpts = append(rcpts, addr)
	}

	if err := s.deliver(ctx, rcpts, s.compose(msg, rcpts)); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

func checkHeaders(msg *Message) error {
	values := append([]string{msg.Subject}, msg.To...)
	for k, v := range msg.Headers {
		values = append(values, k, v)
	}
	for _, v := range values {
		if strings.ContainsAny(v, "\r\n") {
			return ErrHeaderInjection
		}
	}
	return nil
}

func (s *SMTPSender) compose(msg *Message, rcpts []*mail.Address) []byte {
	from := mail.Address{Name: s.config.FromName, Address: s.config.From}

	to := make([]string, len(rcpts))
	for i, a := range rcpts {
		to[i] = a.String()
	}

	var b strings.Builder
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}

	header("From", from.String())
	header("To", strings.Join(to, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("Message-ID", "<"+uuid.NewString()+"@"+senderDomain(s.config.From)+">")

	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		header(k, msg.Headers[k])
	}

	header("MIME-Version", "1.0")
	header("Content-Type", "text/html; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

func senderDomain(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return addr[i+1:]
	}
	return "localhost"
}

func (s *SMTPSender) deliver(ctx context.Context, rcpts []*mail.Address, content []byte) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	dialer := &net.Dialer{Timeout: s.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(s.config.Timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	defer client.Close()

	if s.config.TLS {
		err := client.StartTLS(&tls.Config{
			ServerName:         s.config.Host,
			InsecureSkipVerify: s.config.SkipVerify, //nolint:gosec // opt-in for local relays, rejected in production config
			MinVersion:         tls.VersionTLS12,
		})
		if err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if s.config.User != "" {
		if err := client.Auth(smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, r := range rcpts {
		if err := client.Rcpt(r.Address); err != nil {
			return fmt.Errorf("rcpt to: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("end data: %w", err)
	}
	return client.Quit()
}
