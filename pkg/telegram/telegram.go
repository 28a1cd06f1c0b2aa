package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrTelegramDisabled signals that Telegram delivery is disabled via configuration.
var ErrTelegramDisabled = errors.New("telegram: delivery disabled")

const defaultAPIBaseURL = "https://api.telegram.org"
const defaultTimeout = 10 * time.Second

// Message represents an outbound Telegram message addressed by chat ID.
type Message struct {
	ChatID string
	Text   string
}

// Sender defines behaviour for delivering Telegram messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Settings capture the runtime configuration required by the bot sender.
type Settings struct {
	Enabled  bool
	BotToken string
	BaseURL  string // overridable for tests
	Timeout  time.Duration
}

type botSender struct {
	cfg    Settings
	client *http.Client
}

// NewBotSender builds a Sender backed by the Telegram Bot API. Only the
// sendMessage method is needed, so the dependency is a plain HTTP client.
func NewBotSender(cfg Settings) (Sender, error) {
	if cfg.Enabled && strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.New("telegram: bot token is required when enabled")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &botSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (s *botSender) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enabled {
		return ErrTelegramDisabled
	}

	chatID := strings.TrimSpace(msg.ChatID)
	if chatID == "" {
		return errors.New("telegram: chat id is required")
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return errors.New("telegram: message text is required")
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("telegram: encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram: sendMessage returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("telegram: decode response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram: api error: %s", apiResp.Description)
	}

	return nil
}
