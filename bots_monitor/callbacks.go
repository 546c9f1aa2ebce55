package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/uneeb123/alpha-hunter-sub000/internal/features/format"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/reports"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"

	"go.uber.org/zap"
)

// Inline keyboard callback data.
const (
	CallbackAlertsOn  = "alerts_on"
	CallbackAlertsOff = "alerts_off"
	CallbackTrending  = "trending"
	CallbackYields    = "yields"
	CallbackSummary   = "summary"
	CallbackFilters   = "filters"
	CallbackHelp      = "help"
)

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	// Stops the button spinner; failure only affects the client UI.
	if _, err := b.tg.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.LogWarn("Failed to answer callback", zap.String("callbackID", q.ID), zap.Error(err))
	}
	if q.Message == nil {
		return nil
	}
	chatID := q.Message.Chat.ID

	log.LogDebug("Received callback", zap.String("data", q.Data), zap.Int64("chatID", chatID))

	switch q.Data {
	case CallbackAlertsOn:
		if err := b.setAlerts(ctx, chatID, true); err != nil {
			return err
		}
		return b.send(chatID, "🔔 Alerts are on.", nil)
	case CallbackAlertsOff:
		if err := b.setAlerts(ctx, chatID, false); err != nil {
			return err
		}
		return b.send(chatID, "🔕 Alerts are off.", nil)
	case CallbackTrending:
		text, err := b.reports.Trending(ctx, "24h")
		return b.sendReport(chatID, "trending tokens", text, err)
	case CallbackYields:
		text, err := b.reports.Yields(ctx, reports.DefaultYieldFilter())
		return b.sendReport(chatID, "yields", text, err)
	case CallbackSummary:
		return b.sendLatestSummary(ctx, chatID)
	case CallbackFilters:
		return b.showFilters(ctx, chatID)
	case CallbackHelp:
		return b.cmdHelp(chatID)
	default:
		log.LogWarn("Unknown callback", zap.String("data", q.Data))
		return nil
	}
}

// Telegram rejects messages over 4096 characters.
const maxSummaryRunes = 3500

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func (b *Bot) sendLatestSummary(ctx context.Context, chatID int64) error {
	p, err := b.store.LatestPublished(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return b.send(chatID, "No summary has been published yet.", nil)
	}
	if err != nil {
		return b.sendReport(chatID, "the latest summary", "", err)
	}
	text := fmt.Sprintf("<b>%s</b> · %s\n\n%s",
		format.Escape(p.AlphaName), p.UpdatedAt.UTC().Format("Jan 2 15:04 MST"), format.Escape(truncate(p.Summary, maxSummaryRunes)))
	return b.send(chatID, text, nil)
}
