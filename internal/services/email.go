package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"

	"ticketing_app_echo/internal/config"
)

// InlineImage is an image referenced from the HTML body by cid:<ContentID>
type InlineImage struct {
	ContentID   string
	Filename    string
	ContentType string
	Data        []byte
}

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		send:     smtp.SendMail,
	}
}

func (s *EmailService) Configured() bool {
	return s.host != "" && s.port != "" && s.user != "" && s.password != ""
}

func (s *EmailService) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if !s.Configured() {
		return fmt.Errorf("SMTP credentials not fully configured")
	}

	message := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", s.from, strings.Join(to, ", "), mime.QEncoding.Encode("utf-8", subject), body))

	return s.deliver(ctx, to, message)
}

// SendHTML sends an HTML email with optional inline images as multipart/related
func (s *EmailService) SendHTML(ctx context.Context, to []string, subject, html string, images ...InlineImage) error {
	if !s.Configured() {
		return fmt.Errorf("SMTP credentials not fully configured")
	}

	message, err := buildHTMLMessage(s.from, to, subject, html, images)
	if err != nil {
		return err
	}
	return s.deliver(ctx, to, message)
}

// deliver stops waiting when ctx is done, but net/smtp has no cancellation so
// the send keeps going. A send that finishes after the deadline still reaches
// the inbox while the caller has already recorded a failure, and the resend
// task may then deliver the same ticket twice.
func (s *EmailService) deliver(ctx context.Context, to []string, message []byte) error {
	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	_, err := callWithContext(ctx, func() (struct{}, error) {
		return struct{}{}, s.send(addr, auth, s.from, to, message)
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildHTMLMessage(from string, to []string, subject, html string, images []InlineImage) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/related; boundary=%q\r\n\r\n", w.Boundary())

	htmlPart, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(htmlPart, []byte(html)); err != nil {
		return nil, err
	}

	for _, img := range images {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {img.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-ID":                {"<" + img.ContentID + ">"},
			"Content-Disposition":       {fmt.Sprintf("inline; filename=%q", img.Filename)},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, img.Data); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64 writes data base64 encoded in 76 character lines
func writeBase64(w interface{ Write([]byte) (int, error) }, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := w.Write([]byte(encoded + "\r\n"))
	return err
}
