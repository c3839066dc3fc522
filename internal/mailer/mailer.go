// internal/mailer/mailer.go
//
// Outbound mail: message shape, Mailer capability, and SMTP implementation.
//
// Context
//   Every accepted submission becomes exactly one e-mail to the fixed
//   operations recipient, reply-to set to the submitter so staff answer
//   leads with a single click.  The mail message is the only durable
//   output of the whole system; its durability is the transport's problem.
//   Delivery is attempted once—no queue, no retry—and a failure surfaces
//   to the caller as an error it converts into the generic user message.
//
// Workflow
//   •  Mailer is the narrow capability handlers depend on; tests inject a
//      counting fake.
//   •  SMTP wraps mailyak: implicit TLS on port 465, STARTTLS negotiation
//      otherwise, matching common relay configurations.
//
//------------------------------------------------------------------------------

package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/domodwyer/mailyak/v3"

	"github.com/itestchem/labportal/internal/config"
)

// Attachment is one file carried by a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one outbound notification.  The recipient is fixed by
// configuration, so it is not part of the message.
type Message struct {
	ReplyTo     string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer sends one message.  At-most-once: implementations must not retry.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTP is the production Mailer.
type SMTP struct {
	cfg config.SMTP
}

// NewSMTP builds an SMTP mailer from configuration.
func NewSMTP(cfg config.SMTP) *SMTP {
	return &SMTP{cfg: cfg}
}

// Send composes and dispatches msg.  The context gates only the start of
// the attempt; once the SMTP dialogue begins the transport's own timeouts
// apply.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	var (
		mail *mailyak.MailYak
		err  error
	)
	if s.cfg.Port == 465 {
		// Implicit TLS (SMTPS).
		mail, err = mailyak.NewWithTLS(addr, auth, &tls.Config{ServerName: s.cfg.Host})
		if err != nil {
			return fmt.Errorf("smtp tls setup: %w", err)
		}
	} else {
		mail = mailyak.New(addr, auth)
	}

	mail.From(s.cfg.Sender)
	mail.To(s.cfg.Recipient)
	if msg.ReplyTo != "" {
		mail.ReplyTo(msg.ReplyTo)
	}
	mail.Subject(msg.Subject)
	mail.HTML().Set(msg.HTML)

	for _, a := range msg.Attachments {
		mail.AttachWithMimeType(a.Filename, bytes.NewReader(a.Content), a.ContentType)
	}

	if err := mail.Send(); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
