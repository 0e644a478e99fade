package services

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing_app_echo/internal/config"
)

func TestEmailServiceNotConfigured(t *testing.T) {
	svc := NewEmailService(config.SMTPConfig{Host: "smtp.example.com"})
	err := svc.SendHTML(context.Background(), []string{"ada@example.com"}, "Your ticket", "<p>hi</p>")
	assert.Error(t, err)
}

func TestEmailServiceSendHTMLBuildsRelatedMessage(t *testing.T) {
	svc := NewEmailService(config.SMTPConfig{
		Host: "smtp.example.com", Port: "587", User: "user", Password: "pass", From: "tickets@example.com",
	})

	var (
		gotAddr string
		gotTo   []string
		gotMsg  []byte
	)
	svc.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	err := svc.SendHTML(context.Background(), []string{"ada@example.com"}, "Your ticket",
		`<img src="cid:ticket-qr">`,
		InlineImage{ContentID: "ticket-qr", Filename: "ticket.png", ContentType: "image/png", Data: []byte("png-bytes")})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)

	msg, err := mail.ReadMessage(strings.NewReader(string(gotMsg)))
	require.NoError(t, err)
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/related", mediaType)

	reader := multipart.NewReader(msg.Body, params["boundary"])
	htmlPart, err := reader.NextPart()
	require.NoError(t, err)
	assert.Contains(t, htmlPart.Header.Get("Content-Type"), "text/html")

	imgPart, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "<ticket-qr>", imgPart.Header.Get("Content-ID"))
	assert.Equal(t, "image/png", imgPart.Header.Get("Content-Type"))

	_, err = reader.NextPart()
	assert.Equal(t, io.EOF, err)
}

func TestEmailServiceWrapsSendError(t *testing.T) {
	svc := NewEmailService(config.SMTPConfig{Host: "h", Port: "25", User: "u", Password: "p"})
	svc.send = func(string, smtp.Auth, string, []string, []byte) error {
		return io.ErrUnexpectedEOF
	}
	err := svc.SendEmail(context.Background(), []string{"ada@example.com"}, "s", "b")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestEmailServiceTimeoutLeavesSendRunning(t *testing.T) {
	svc := NewEmailService(config.SMTPConfig{Host: "h", Port: "25", User: "u", Password: "p"})
	unblock := make(chan struct{})
	delivered := make(chan struct{})
	svc.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-unblock
		close(delivered)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := svc.SendEmail(ctx, []string{"ada@example.com"}, "s", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(unblock)
	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("send did not complete after the caller gave up")
	}
}
