package contact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/ixra/ixra-api/internal/core"
)

// SMTPConfig configures mail delivery of leads.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// Enabled reports whether a mail host is configured.
func (c SMTPConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier mails each lead to the configured inbox.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send sendMailFunc
}

// NewSMTPNotifier validates cfg and returns a notifier.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if !cfg.Enabled() {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.To) == "" {
		return nil, errors.New("smtp recipient is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		cfg.From = cfg.Username
	}
	if strings.TrimSpace(cfg.From) == "" {
		cfg.From = cfg.To
	}
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}, nil
}

func (n *SMTPNotifier) Name() string { return "smtp" }

// Notify sends one message. smtp.SendMail has no context support, so ctx is
// only checked before dialing.
func (n *SMTPNotifier) Notify(ctx context.Context, lead *core.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(addr, auth, n.cfg.From, []string{n.cfg.To}, n.message(lead)); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	return nil
}

func (n *SMTPNotifier) Close() error { return nil }

func (n *SMTPNotifier) message(lead *core.Lead) []byte {
	d := Describe(lead)

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", n.cfg.To)
	fmt.Fprintf(&b, "Reply-To: %s\r\n", sanitizeHeader(d.Email))
	fmt.Fprintf(&b, "Subject: New IXRA inquiry from %s\r\n", sanitizeHeader(d.Name))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Name: %s\r\n", d.Name)
	fmt.Fprintf(&b, "Email: %s\r\n", d.Email)
	fmt.Fprintf(&b, "Company: %s\r\n", d.Company)
	fmt.Fprintf(&b, "Service: %s\r\n", d.ServiceType)
	fmt.Fprintf(&b, "Simulation types: %s\r\n", d.SimulationTypes)
	fmt.Fprintf(&b, "Submitted: %s\r\n", d.Timestamp)
	fmt.Fprintf(&b, "Lead ID: %s\r\n", lead.ID)
	b.WriteString("\r\n")
	b.WriteString(d.Message)
	b.WriteString("\r\n")
	return b.Bytes()
}

// sanitizeHeader strips line breaks so visitor input cannot inject headers.
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
