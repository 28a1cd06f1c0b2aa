package app

import (
	"github.com/aruzhans/oppora/pkg/mail"
	"github.com/aruzhans/oppora/pkg/telegram"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// SenderSettings converts TelegramConfig to the telegram package representation.
func (c TelegramConfig) SenderSettings() telegram.Settings {
	return telegram.Settings{
		Enabled:  c.Enabled,
		BotToken: c.BotToken,
		Timeout:  c.Timeout,
	}
}
