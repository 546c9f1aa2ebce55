// Package bot handles Telegram updates and runs the long-lived monitors.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/uneeb123/alpha-hunter-sub000/internal/cache"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/defillama"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/notify"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"

	"go.uber.org/zap"
)

type Store interface {
	UpsertChat(ctx context.Context, c *store.Chat) error
	SetChatSubscription(ctx context.Context, telegramChatID int64, kind string, enabled bool) error
	GetFilter(ctx context.Context, chatID int64) (*store.Filter, error)
	SaveFilter(ctx context.Context, f *store.Filter) error
	LatestPublished(ctx context.Context) (*store.Processor, error)
	RecentAlerts(ctx context.Context, limit int) ([]store.Alert, error)
	TopTokens(ctx context.Context, limit int) ([]store.Token, error)
}

type Reports interface {
	Yields(ctx context.Context, f defillama.PoolFilter) (string, error)
	Trending(ctx context.Context, window string) (string, error)
	TokenBrief(ctx context.Context, address string) (string, error)
	Flow(ctx context.Context, address string, window time.Duration) (string, error)
}

type Blocklist interface {
	Add(address string) (bool, error)
	Remove(address string) (bool, error)
}

type Options struct {
	Cache     cache.Cache
	Blocklist Blocklist
	// AdminChatID may run /block and /unblock. Zero disables them.
	AdminChatID int64
	DedupeTTL   time.Duration
}

type Bot struct {
	tg      notify.Sender
	store   Store
	reports Reports
	opts    Options
}

func New(tg notify.Sender, s Store, r Reports, opts Options) *Bot {
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory(10_000)
	}
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = 24 * time.Hour
	}
	return &Bot{tg: tg, store: s, reports: r, opts: opts}
}

// HandleUpdate dispatches one update from the webhook or the long-poll loop.
// Updates already seen are dropped.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) error {
	if !b.firstDelivery(ctx, u.UpdateID) {
		log.LogDebug("Duplicate update skipped", zap.Int("updateID", u.UpdateID))
		return nil
	}

	switch {
	case u.CallbackQuery != nil:
		return b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.IsCommand():
		return b.handleCommand(ctx, u.Message)
	default:
		return nil
	}
}

func (b *Bot) firstDelivery(ctx context.Context, updateID int) bool {
	key := "tg:update:" + strconv.Itoa(updateID)
	ok, err := b.opts.Cache.SetNX(ctx, key, []byte{1}, b.opts.DedupeTTL)
	if err != nil {
		log.LogWarn("Update dedupe unavailable", zap.Int("updateID", updateID), zap.Error(err))
		return true
	}
	return ok
}

func (b *Bot) send(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.tg.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// sendReport sends the report text, or a short apology when building it failed.
func (b *Bot) sendReport(chatID int64, what, text string, err error) error {
	if err != nil {
		log.LogError("Report failed", zap.String("report", what), zap.Int64("chatID", chatID), zap.Error(err))
		if sendErr := b.send(chatID, "Couldn't load "+what+" right now, try again in a minute.", nil); sendErr != nil {
			return sendErr
		}
		return err
	}
	return b.send(chatID, text, nil)
}

func menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔔 Alerts on", CallbackAlertsOn),
			tgbotapi.NewInlineKeyboardButtonData("🔕 Alerts off", CallbackAlertsOff),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📈 Trending", CallbackTrending),
			tgbotapi.NewInlineKeyboardButtonData("🌾 Yields", CallbackYields),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📰 Latest summary", CallbackSummary),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Filters", CallbackFilters),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❓ Help", CallbackHelp),
		),
	)
}
