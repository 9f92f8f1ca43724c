// Package delivery implements the outbound channels the distribution router
// dispatches to. Channels are fire-and-forget: they report ok or error and
// keep no state of their own.
package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"

	"go-reporting-orchestrator/internal/model"
)

// SMTPSender sends HTML mail with optional attachments over a plain SMTP
// relay. Auth is used only when a username is configured.
type SMTPSender struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

func NewSMTPSender(cfg model.DeliveryConfig) *SMTPSender {
	return &SMTPSender{
		Addr:     cfg.SMTPAddr,
		From:     cfg.EmailFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	}
}

func (s *SMTPSender) SendEmail(ctx context.Context, recipient, subject, body string, attachments []model.Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Addr == "" {
		return fmt.Errorf("smtp address not configured")
	}

	msg, err := buildMessage(s.From, recipient, subject, body, attachments)
	if err != nil {
		return fmt.Errorf("building mail message: %w", err)
	}

	var auth smtp.Auth
	if s.Username != "" {
		host, _, err := net.SplitHostPort(s.Addr)
		if err != nil {
			host = s.Addr
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}

	if err := smtp.SendMail(s.Addr, auth, s.From, []string{recipient}, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", recipient, err)
	}
	return nil
}

// buildMessage assembles a multipart/mixed MIME message with an HTML body
// part followed by base64-encoded attachments.
func buildMessage(from, to, subject, body string, attachments []model.Attachment) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(attachments) == 0 {
		buf.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		buf.WriteString(body)
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", w.Boundary())

	htmlPart, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write([]byte(body)); err != nil {
		return nil, err
	}

	for _, att := range attachments {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {att.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", att.Filename)},
		})
		if err != nil {
			return nil, err
		}
		enc := base64.NewEncoder(base64.StdEncoding, part)
		if _, err := enc.Write(att.Data); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
