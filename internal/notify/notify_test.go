package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poRequestTracker/models"
)

func TestTelegram_NotifyNewPO(t *testing.T) {
	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "42", "https://po.example.com", zerolog.Nop()).WithBaseURL(srv.URL)
	require.True(t, tg.Enabled())

	po := &models.PORequest{ID: 7, TechName: "Tech One", JobName: "Service", EstimatedCost: 12.5}
	require.NoError(t, tg.NotifyNewPO(context.Background(), po))
	assert.Equal(t, "/bottok/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Contains(t, gotText, "PO #S0007")
	assert.Contains(t, gotText, "Est Cost: $12.50")
	assert.Contains(t, gotText, "View at: https://po.example.com")
}

func TestTelegram_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chat not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegram("tok", "42", "", zerolog.Nop()).WithBaseURL(srv.URL)
	err := tg.NotifyNewPO(context.Background(), &models.PORequest{ID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegram_Disabled(t *testing.T) {
	tg := NewTelegram("", "42", "", zerolog.Nop())
	assert.False(t, tg.Enabled())
	assert.NoError(t, tg.NotifyNewPO(context.Background(), &models.PORequest{ID: 1}))

	var nilTG *Telegram
	assert.False(t, nilTG.Enabled())
}

func TestMailer_SendPasswordReset(t *testing.T) {
	var addr, from string
	var to []string
	var body []byte
	m := NewMailer(MailConfig{Host: "smtp.example.com", Username: "po@example.com", Password: "pw", WebsiteURL: "https://po.example.com/"}, zerolog.Nop()).
		WithSender(func(a string, _ smtp.Auth, f string, rcpt []string, msg []byte) error {
			addr, from, to, body = a, f, rcpt, msg
			return nil
		})

	require.NoError(t, m.SendPasswordReset(context.Background(), "office@example.com", "abc"))
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Equal(t, "po@example.com", from)
	assert.Equal(t, []string{"office@example.com"}, to)
	assert.Contains(t, string(body), "https://po.example.com/reset_password/abc")
	assert.Contains(t, string(body), "Subject: Password Reset")
}

func TestMailer_Disabled(t *testing.T) {
	m := NewMailer(MailConfig{}, zerolog.Nop())
	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.SendPasswordReset(context.Background(), "a@b.c", "t"), ErrMailDisabled)
}

func TestMailer_SendError(t *testing.T) {
	m := NewMailer(MailConfig{Host: "h", Port: 25}, zerolog.Nop()).
		WithSender(func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") })
	err := m.SendPasswordReset(context.Background(), "a@b.c", "t")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMailDisabled)
}
