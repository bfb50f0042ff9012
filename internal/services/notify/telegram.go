// Package notify pushes operational events to Telegram. Notifications are
// fire-and-forget: delivery runs off the request path with a small retry
// budget, and a final failure is logged and never surfaces to the request
// that triggered it.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/apiclient"
	"github.com/Spower4/ghost-choice-backend/internal/services/retry"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	telegramBaseURL = "https://api.telegram.org"
	sendTimeout     = 15 * time.Second
)

// deliveryRetryConfig is the notifier's own retry budget, far smaller than
// the provider-call envelope. One extra attempt covers a transient Bot API
// hiccup without keeping goroutines alive for long.
func deliveryRetryConfig() models.RetryConfig {
	return models.RetryConfig{
		MaxRetries:        1,
		BackoffMultiplier: 2.0,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		RateLimitDelay:    1 * time.Second,
	}
}

// Notifier delivers messages to a Telegram chat. A nil Notifier is valid
// and drops every message.
type Notifier struct {
	client *apiclient.Client
	exec   *retry.Executor
	token  string
	chatID string
}

// NewTelegram creates a Telegram notifier, or nil when unconfigured
func NewTelegram(cfg models.TelegramConfig, opts ...retry.Option) *Notifier {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		fiberlog.Info("Notify: telegram not configured, notifications disabled")
		return nil
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramBaseURL
	}

	return &Notifier{
		client: apiclient.NewClient(models.ProviderTelegram, baseURL),
		exec:   retry.New(deliveryRetryConfig(), opts...),
		token:  cfg.BotToken,
		chatID: cfg.ChatID,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Send delivers a message asynchronously and never blocks the caller
func (n *Notifier) Send(text string) {
	if n == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		err := n.exec.Do(ctx, "telegram.sendMessage", "notify", func(ctx context.Context) error {
			var resp sendMessageResponse
			if err := n.client.Post(ctx, fmt.Sprintf("/bot%s/sendMessage", n.token), sendMessageRequest{
				ChatID: n.chatID,
				Text:   text,
			}, &resp, nil); err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("telegram rejected message: %s", resp.Description)
			}
			return nil
		})
		if err != nil {
			fiberlog.Warnf("Notify: telegram delivery failed: %v", err)
		}
	}()
}

// Sendf formats and delivers a message
func (n *Notifier) Sendf(format string, args ...any) {
	n.Send(fmt.Sprintf(format, args...))
}
