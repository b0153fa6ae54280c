package notifier

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dtek-shutdowns-monitor/internal/models"
)

// TelegramNotifier mirrors each event to a Telegram chat. Optional: the
// event log stays the channel of record.
type telegramNotifier struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	address models.Address
}

func NewTelegramNotifier(token string, chatID int64, address models.Address) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &telegramNotifier{bot: bot, chatID: chatID, address: address}, nil
}

func (n *telegramNotifier) Send(_ context.Context, event models.NotificationEvent) error {
	var title string
	switch event.Kind {
	case models.EventOutageWarning:
		title = "Скоро відключення світла"
	case models.EventScheduleChange:
		title = "Графік відключень змінився"
	default:
		title = string(event.Kind)
	}

	text := fmt.Sprintf("<b>%s</b>\n\n%s\n\n<b>Адреса:</b> %s", title, event.Summary(), n.address)
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
