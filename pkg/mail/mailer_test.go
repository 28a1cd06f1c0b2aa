package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestMailer(t *testing.T, settings SMTPSettings) Mailer {
	t.Helper()

	mailer, err := NewSMTPMailer(settings)
	require.NoError(t, err)
	require.NotNil(t, mailer)
	return mailer
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	// A disabled mailer needs no host; it only ever reports ErrSMTPDisabled.
	newTestMailer(t, SMTPSettings{Enabled: false})
}

func TestSMTPMailerSendDisabled(t *testing.T) {
	mailer := newTestMailer(t, SMTPSettings{Enabled: false})

	err := mailer.Send(context.Background(), Message{
		To:      []string{"aruzhan@example.com"},
		Subject: "Reset your password",
		Body:    "Use the link below to pick a new password.",
	})
	require.ErrorIs(t, err, ErrSMTPDisabled)
}

func TestFormatMessage(t *testing.T) {
	content := formatMessage(
		"no-reply@oppora.example.com",
		[]string{"aruzhan@example.com"},
		"Reset your password\r\nBcc: attacker@example.com",
		"Use the link below.",
	)
	require.Contains(t, content, "From: no-reply@oppora.example.com")
	require.Contains(t, content, "Subject: Reset your password  Bcc: attacker@example.com")
	require.True(t, strings.HasSuffix(content, "Use the link below."))
}

func TestSMTPMailerDefaultTimeout(t *testing.T) {
	mailer := newTestMailer(t, SMTPSettings{
		Enabled: true,
		Host:    "smtp.oppora.example.com",
		Port:    587,
		From:    "no-reply@oppora.example.com",
		UseTLS:  true,
	})

	sm, ok := mailer.(*smtpMailer)
	require.True(t, ok)
	require.Equal(t, 10*time.Second, sm.cfg.Timeout)
}

func TestSMTPMailerSendRequiresRecipients(t *testing.T) {
	mailer := newTestMailer(t, SMTPSettings{
		Enabled: true,
		Host:    "smtp.oppora.example.com",
		Port:    587,
		From:    "no-reply@oppora.example.com",
	})

	err := mailer.Send(context.Background(), Message{
		To:      []string{"   ", "\t"},
		Subject: "Reset your password",
		Body:    "Use the link below.",
	})
	require.ErrorContains(t, err, "at least one recipient")
}

func TestSMTPMailerSendValidatesFromAddress(t *testing.T) {
	mailer := newTestMailer(t, SMTPSettings{
		Enabled: true,
		Host:    "smtp.oppora.example.com",
		Port:    587,
	})

	err := mailer.Send(context.Background(), Message{
		From: "not-an-address",
		To:   []string{"aruzhan@example.com"},
	})
	require.ErrorContains(t, err, "invalid from address")
}

func TestSMTPMailerSendValidatesRecipientAddresses(t *testing.T) {
	mailer := newTestMailer(t, SMTPSettings{
		Enabled: true,
		Host:    "smtp.oppora.example.com",
		Port:    587,
		From:    "no-reply@oppora.example.com",
	})

	err := mailer.Send(context.Background(), Message{
		To: []string{"aruzhan@example.com", "not-an-address"},
	})
	require.ErrorContains(t, err, "invalid recipient address")
}

func TestUniqueAddresses(t *testing.T) {
	addresses := []string{
		"aruzhan@example.com",
		"dana@example.com",
		" aruzhan@example.com ",
		"",
		"dana@example.com",
	}
	require.Equal(t, []string{"aruzhan@example.com", "dana@example.com"}, uniqueAddresses(addresses))
}
