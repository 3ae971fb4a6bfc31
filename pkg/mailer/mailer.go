package mailer

import (
	"context"
	"strings"

	"gopkg.in/gomail.v2"

	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
)

// Config carries the SMTP settings for transactional mail.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// sender is the dial-and-send seam; tests stub it.
type sender interface {
	DialAndSend(msgs ...*gomail.Message) error
}

// Mailer sends transactional email over SMTP.
type Mailer struct {
	dialer      sender
	fromAddress string
	fromName    string
}

// New builds a Mailer from SMTP settings.
func New(cfg Config) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "smtp port is required")
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "from address is required")
	}

	return &Mailer{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}, nil
}

// Message is one outbound email.
type Message struct {
	To       []string
	CC       []string
	Subject  string
	TextBody string
	HTMLBody string
}

// Send delivers the message. HTML bodies ride as an alternative part so
// plain-text clients still render something.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if m == nil || m.dialer == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "mailer not configured")
	}
	if len(msg.To) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	if msg.TextBody == "" && msg.HTMLBody == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send aborted")
	}

	gm := gomail.NewMessage()
	gm.SetAddressHeader("From", m.fromAddress, m.fromName)
	gm.SetHeader("To", msg.To...)
	if len(msg.CC) > 0 {
		gm.SetHeader("Cc", msg.CC...)
	}
	gm.SetHeader("Subject", msg.Subject)

	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		gm.SetBody("text/plain", msg.TextBody)
		gm.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		gm.SetBody("text/html", msg.HTMLBody)
	default:
		gm.SetBody("text/plain", msg.TextBody)
	}

	if err := m.dialer.DialAndSend(gm); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	return nil
}
