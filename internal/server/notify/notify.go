// Package notify delivers password reset messages to account holders.
package notify

import (
	"context"
	"fmt"
	ht "html/template"
	tt "text/template"

	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/wneessen/go-mail"
)

// ResetMessage is everything a reset mail needs.
type ResetMessage struct {
	Email       string
	DisplayName string
	Token       string
	Link        string
}

// Notifier sends a reset message. The bool reports whether the message was
// handed to a delivery channel; callers treat delivery as best effort.
type Notifier interface {
	Send(ctx context.Context, msg ResetMessage) (bool, error)
}

// LogNotifier writes reset messages to the log instead of mailing them.
// Used in development and as the fallback when SMTP is not configured.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, msg ResetMessage) (bool, error) {
	n.logger.Info(ctx, "password reset email",
		"to", msg.Email,
		"name", msg.DisplayName,
		"token", msg.Token,
		"link", msg.Link,
	)
	return true, nil
}

var (
	textBody = tt.Must(tt.New("text").Parse(`Hello {{.Name}},

Use the link below to choose a new password. It is valid for one hour and can be used once.

{{.Link}}

If you did not ask for a reset, ignore this message.
`))
	htmlBody = ht.Must(ht.New("html").Parse(`<p>Hello {{.Name}},</p>
<p>Use the link below to choose a new password. It is valid for one hour and can be used once.</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>If you did not ask for a reset, ignore this message.</p>
`))
)

// SMTPNotifier mails reset messages through an SMTP relay. When a send
// fails the message goes to fallback so the link is not lost.
type SMTPNotifier struct {
	from     string
	fallback Notifier
	logger   logging.Logger
	sendMsg  func(ctx context.Context, m *mail.Msg) error
}

// NewSMTPNotifier builds a notifier for host:port. SMTP authentication is
// only attempted when user is set; STARTTLS is used when the relay offers it.
func NewSMTPNotifier(host string, port int, user, password, from string, fallback Notifier, logger logging.Logger) (*SMTPNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(password),
		)
	}
	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPNotifier{
		from:     from,
		fallback: fallback,
		logger:   logger,
		sendMsg: func(ctx context.Context, m *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, m)
		},
	}, nil
}

func (n *SMTPNotifier) Send(ctx context.Context, msg ResetMessage) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m, err := n.compose(msg)
	if err == nil {
		err = n.sendMsg(ctx, m)
	}
	if err != nil {
		n.logger.Warn(ctx, "smtp send failed", "to", msg.Email, "error", err)
		if n.fallback != nil {
			_, _ = n.fallback.Send(ctx, msg)
		}
		return false, fmt.Errorf("smtp send: %w", err)
	}

	return true, nil
}

// compose builds a plain text mail with an HTML alternative.
func (n *SMTPNotifier) compose(msg ResetMessage) (*mail.Msg, error) {
	name := msg.DisplayName
	if name == "" {
		name = msg.Email
	}

	m := mail.NewMsg()
	if err := m.FromFormat("Neexa", n.from); err != nil {
		return nil, err
	}
	if err := m.AddToFormat(msg.DisplayName, msg.Email); err != nil {
		return nil, err
	}
	m.Subject("Password reset")

	data := struct{ Name, Link string }{name, msg.Link}
	if err := m.SetBodyTextTemplate(textBody, data); err != nil {
		return nil, err
	}
	if err := m.AddAlternativeHTMLTemplate(htmlBody, data); err != nil {
		return nil, err
	}
	return m, nil
}
