package connectors

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// TelegramConnector delivers critical notifications to a Telegram chat via
// the bot API. It is strictly best-effort: an unconfigured token is a valid
// disabled state, and send failures are reported to the caller but never
// escalate beyond a log entry there.
type TelegramConnector struct {
	http   *resty.Client
	token  string
	chatID string
}

func NewTelegramConnector(cfg Config) *TelegramConnector {
	httpClient := resty.New().
		SetBaseURL("https://api.telegram.org").
		SetTimeout(cfg.TelegramTimeout)

	return &TelegramConnector{
		http:   httpClient,
		token:  cfg.TelegramBotToken,
		chatID: cfg.TelegramChatID,
	}
}

// Enabled reports whether credentials are configured.
func (c *TelegramConnector) Enabled() bool {
	return c.token != "" && c.chatID != ""
}

// Send posts one message to the configured chat.
func (c *TelegramConnector) Send(ctx context.Context, title, message string) error {
	if !c.Enabled() {
		return nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id":    c.chatID,
			"text":       fmt.Sprintf("*%s*\n%s", title, message),
			"parse_mode": "Markdown",
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", c.token))

	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	if resp.StatusCode()/100 != 2 {
		return fmt.Errorf("telegram non-2xx status: %d", resp.StatusCode())
	}

	logger.WithField("chat_id", c.chatID).Debug("[connectors] Telegram notification sent")
	return nil
}
