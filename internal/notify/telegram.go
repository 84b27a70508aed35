// Package notify delivers chat messages through the Telegram Bot API.
// Delivery is best effort: failures are logged and counted, never returned.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotClient is the subset of *tgbotapi.BotAPI the notifier uses.
type BotClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Button is an inline action attached to a message. Data comes back in the
// callback query when pressed.
type Button struct {
	Label string
	Data  string
}

type TelegramNotifier struct {
	bot        BotClient
	adminChats []string
	parseMode  string
}

// NewTelegramNotifier returns a notifier. A nil bot drops every message.
func NewTelegramNotifier(bot BotClient, adminChats []string, parseMode string) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, adminChats: adminChats, parseMode: parseMode}
}

func (n *TelegramNotifier) Notify(ctx context.Context, chat, text string, buttons ...Button) {
	if strings.TrimSpace(chat) == "" {
		logger.Debug("Notification skipped, no chat identity")
		return
	}
	n.deliver(ctx, "message", func() error {
		msg := n.message(chat, text)
		if len(buttons) > 0 {
			row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
			for _, b := range buttons {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
			}
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
		}
		_, err := n.bot.Send(msg)
		return err
	}, "chat", chat)
}

func (n *TelegramNotifier) NotifyAdmins(ctx context.Context, text string, buttons ...Button) {
	if len(n.adminChats) == 0 {
		logger.Warn("No admin chat configured, admin notification dropped")
		return
	}
	for _, chat := range n.adminChats {
		n.Notify(ctx, chat, text, buttons...)
	}
}

func (n *TelegramNotifier) NotifyPrimaryAdmin(ctx context.Context, text string) {
	if len(n.adminChats) == 0 {
		logger.Warn("No admin chat configured, admin notification dropped")
		return
	}
	n.Notify(ctx, n.adminChats[0], text)
}

// Acknowledge answers a pressed inline button.
func (n *TelegramNotifier) Acknowledge(ctx context.Context, interactionID, text string) {
	if interactionID == "" {
		return
	}
	n.deliver(ctx, "callback_answer", func() error {
		_, err := n.bot.Request(tgbotapi.NewCallback(interactionID, text))
		return err
	}, "callbackID", interactionID)
}

func (n *TelegramNotifier) message(chat, text string) tgbotapi.MessageConfig {
	text = tgbotapi.EscapeText(n.parseMode, text)

	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		if !strings.HasPrefix(chat, "@") {
			chat = "@" + chat
		}
		msg = tgbotapi.NewMessageToChannel(chat, text)
	}
	msg.ParseMode = n.parseMode
	return msg
}

// deliver runs send inside its own error boundary.
func (n *TelegramNotifier) deliver(ctx context.Context, kind string, send func() error, args ...any) {
	if n.bot == nil {
		logger.InfoContext(ctx, "Telegram not configured, notification dropped", append([]any{"kind", kind}, args...)...)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationFailuresTotal.WithLabelValues(kind).Inc()
			logger.ErrorContext(ctx, "Notification panicked", append([]any{"kind", kind, "panic", fmt.Sprint(r)}, args...)...)
		}
	}()

	logger.ExternalServiceCall("telegram", kind, args...)
	err := send()
	logger.ExternalServiceResult("telegram", kind, err, args...)
	if err != nil {
		metrics.NotificationFailuresTotal.WithLabelValues(kind).Inc()
	}
}
