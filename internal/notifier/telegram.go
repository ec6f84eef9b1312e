package notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"queryhub/internal/config"
)

// Notifier sends operational events to a Telegram chat. All methods are
// best-effort and safe on a nil receiver, so callers never guard or fail on
// notification problems.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// New creates a Notifier, or (nil, nil) when notifications are disabled.
func New(cfg *config.Config, logger *zap.Logger) (*Notifier, error) {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" {
		logger.Info("Telegram notifications are disabled (telegram.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram notifier authorized", zap.String("username", botAPI.Self.UserName))

	return &Notifier{
		api:    botAPI,
		chatID: cfg.Telegram.ChatID,
		logger: logger,
	}, nil
}

// UserRegistered announces a new registration.
func (n *Notifier) UserRegistered(username string) {
	n.send(fmt.Sprintf("New user registered: %s", username))
}

// UpstreamFailure announces a failed completion call.
func (n *Notifier) UpstreamFailure(model string, err error) {
	n.send(fmt.Sprintf("Completion call failed (model %s): %v", model, err))
}

func (n *Notifier) send(text string) {
	if n == nil {
		return
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Warn("Failed to send Telegram notification", zap.Error(err))
	}
}
