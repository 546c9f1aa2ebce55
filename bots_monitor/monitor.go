package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/uneeb123/alpha-hunter-sub000/internal/features/alerts"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/tokens"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/metrics"

	"go.uber.org/zap"
)

type TokenUpdater interface {
	Update(ctx context.Context) (*tokens.Result, error)
}

type AlertRunner interface {
	Run(ctx context.Context) (*alerts.Result, error)
}

// RunAlertMonitor refreshes the token list and evaluates alerts every interval until ctx
// is done. updater may be nil when another process keeps tokens fresh.
func RunAlertMonitor(ctx context.Context, interval time.Duration, updater TokenUpdater, runner AlertRunner) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	log.LogInfo("Starting alert monitor", zap.Duration("interval", interval))

	tick := func() {
		if updater != nil {
			res, err := updater.Update(ctx)
			metrics.ObserveJob("update_tokens", err)
			if err != nil {
				log.LogError("Token update failed", zap.Error(err))
			} else {
				log.LogDebug("Tokens updated", zap.Int("upserted", res.Upserted), zap.Int("failed", res.Failed))
			}
		}
		_, err := runner.Run(ctx)
		metrics.ObserveJob("alert", err)
		if err != nil {
			log.LogError("Alert run failed", zap.Error(err))
		}
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.LogInfo("Alert monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			tick()
		}
	}
}

// Poller is the long-poll side of *tgbotapi.BotAPI.
type Poller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poll feeds long-polled updates to HandleUpdate until ctx is done. Use it instead of the
// webhook route when the bot has no public URL.
func (b *Bot) Poll(ctx context.Context, p Poller) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := p.GetUpdatesChan(u)
	defer p.StopReceivingUpdates()

	log.LogInfo("Polling Telegram updates")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.HandleUpdate(ctx, update); err != nil {
				log.LogError("Update handling failed", zap.Int("updateID", update.UpdateID), zap.Error(err))
			}
		}
	}
}
