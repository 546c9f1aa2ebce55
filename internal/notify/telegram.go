package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"

	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI used to talk to Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Telegram struct {
	bot Sender
}

func NewTelegram(bot Sender) *Telegram {
	return &Telegram{bot: bot}
}

func (t *Telegram) Notify(_ context.Context, m Message) error {
	if m.ChatID == 0 {
		return fmt.Errorf("telegram notify: chat id is empty")
	}

	var markup *tgbotapi.InlineKeyboardMarkup
	if m.ButtonURL != "" {
		text := m.ButtonText
		if text == "" {
			text = "Open"
		}
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(text, m.ButtonURL)),
		)
		markup = &kb
	}

	if m.PhotoURL != "" {
		photo := tgbotapi.NewPhoto(m.ChatID, tgbotapi.FileURL(m.PhotoURL))
		photo.Caption = m.Text
		photo.ParseMode = tgbotapi.ModeHTML
		if markup != nil {
			photo.ReplyMarkup = *markup
		}
		_, err := t.bot.Send(photo)
		if err == nil {
			return nil
		}
		log.LogWarn("Failed to send photo, falling back to text", zap.Int64("chatID", m.ChatID), zap.Error(err))
	}

	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", m.ChatID, err)
	}
	return nil
}
