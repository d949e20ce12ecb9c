// Package notify sends PO alerts to Telegram and password reset mail over SMTP.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"poRequestTracker/models"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

// Telegram posts new-PO alerts to a chat.
type Telegram struct {
	token      string
	chatID     string
	websiteURL string
	baseURL    string
	client     *http.Client
	logger     zerolog.Logger
}

// NewTelegram returns a notifier. It is disabled when token or chatID is empty.
func NewTelegram(token, chatID, websiteURL string, logger zerolog.Logger) *Telegram {
	return &Telegram{
		token:      token,
		chatID:     chatID,
		websiteURL: websiteURL,
		baseURL:    DefaultTelegramAPI,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL points the notifier at another Bot API host.
func (t *Telegram) WithBaseURL(u string) *Telegram {
	t.baseURL = strings.TrimRight(u, "/")
	return t
}

// Enabled reports whether both token and chat are configured.
func (t *Telegram) Enabled() bool {
	return t != nil && t.token != "" && t.chatID != ""
}

// NewPOMessage renders the alert text for a submitted request.
func NewPOMessage(po *models.PORequest, websiteURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NEW PO REQUEST\n\nPO #%s\nTech: %s\nJob: %s\nEst Cost: $%.2f", po.Number(), po.TechName, po.JobName, po.EstimatedCost)
	if websiteURL != "" {
		fmt.Fprintf(&b, "\n\nView at: %s", websiteURL)
	}
	return b.String()
}

// NotifyNewPO sends the alert. It is a no-op when disabled.
func (t *Telegram) NotifyNewPO(ctx context.Context, po *models.PORequest) error {
	if !t.Enabled() {
		return nil
	}
	form := url.Values{
		"chat_id": {t.chatID},
		"text":    {NewPOMessage(po, t.websiteURL)},
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	t.logger.Info().Int64("po_id", po.ID).Msg("telegram notification sent")
	return nil
}
