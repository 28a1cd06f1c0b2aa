package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBotSenderValidatesConfig(t *testing.T) {
	_, err := NewBotSender(Settings{Enabled: true})
	require.Error(t, err)

	sender, err := NewBotSender(Settings{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, sender)
}

func TestSendDisabled(t *testing.T) {
	sender, err := NewBotSender(Settings{Enabled: false})
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{ChatID: "42", Text: "hi"})
	require.ErrorIs(t, err, ErrTelegramDisabled)
}

func TestSendPostsToBotAPI(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	sender, err := NewBotSender(Settings{
		Enabled:  true,
		BotToken: "secret-token",
		BaseURL:  server.URL,
	})
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{ChatID: "42", Text: "You have a new reminder"})
	require.NoError(t, err)
	require.Equal(t, "/botsecret-token/sendMessage", gotPath)
	require.Equal(t, "42", gotBody["chat_id"])
	require.Equal(t, "You have a new reminder", gotBody["text"])
}

func TestSendSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	sender, err := NewBotSender(Settings{Enabled: true, BotToken: "t", BaseURL: server.URL})
	require.NoError(t, err)

	err = sender.Send(context.Background(), Message{ChatID: "42", Text: "hi"})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "chat not found"))
}

func TestSendValidatesMessage(t *testing.T) {
	sender, err := NewBotSender(Settings{Enabled: true, BotToken: "t"})
	require.NoError(t, err)

	require.Error(t, sender.Send(context.Background(), Message{Text: "hi"}))
	require.Error(t, sender.Send(context.Background(), Message{ChatID: "42"}))
}
