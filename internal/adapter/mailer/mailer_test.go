package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Host: "smtp.example.com",
		Port: 587,
		From: "voicebrief@example.com",
	}
}

func TestSend(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	c := NewClient(testConfig())
	c.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := c.Send(context.Background(), "ops@example.com", "Brief ready", "Job abc is done.")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "voicebrief@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Brief ready\r\n")
	assert.Contains(t, string(gotMsg), "Job abc is done.")
}

func TestSend_Failure(t *testing.T) {
	c := NewClient(testConfig())
	c.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := c.Send(context.Background(), "ops@example.com", "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp send failed")
}

func TestSend_NotConfigured(t *testing.T) {
	c := NewClient(Config{})

	err := c.Send(context.Background(), "ops@example.com", "subject", "body")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "smtp not configured")
}

func TestSend_CancelledContext(t *testing.T) {
	c := NewClient(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Send(ctx, "ops@example.com", "subject", "body")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildMessage_SanitizesSubject(t *testing.T) {
	msg := string(buildMessage("a@x.com", "b@x.com", "line\r\nBcc: evil@x.com", "body"))
	assert.Contains(t, msg, "Subject: line Bcc: evil@x.com\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
}
