package commands

// Long-running bot mode: polls Telegram for updates and runs the alert monitor.
// Use it where the webhook route of "serve" is not reachable.

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	bot "github.com/uneeb123/alpha-hunter-sub000/bots_monitor"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot with long polling and the alert monitor",
	RunE:  runBot,
}

func init() {
	botCmd.Flags().Bool("no-update", false, "Skip the token list refresh before each alert run")
}

func runBot(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, config.ValidateServe)
	if err != nil {
		return err
	}
	defer a.close()

	b, err := a.bot()
	if err != nil {
		return err
	}
	api, err := a.telegram()
	if err != nil {
		return err
	}
	// Updates are not delivered to getUpdates while a webhook is set.
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.LogWarn("Failed to remove Telegram webhook", zap.Error(err))
	}

	alertSvc, err := a.alertService(ctx)
	if err != nil {
		return err
	}
	var updater bot.TokenUpdater
	if skip, _ := cmd.Flags().GetBool("no-update"); !skip {
		updater = a.tokenUpdater(ctx)
	}
	interval := time.Duration(a.cfg.App.CheckInterval) * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Poll(gctx, api) })
	g.Go(func() error { return bot.RunAlertMonitor(gctx, interval, updater, alertSvc) })

	log.LogSuccess("Bot is running", zap.String("status", "active"), zap.Duration("interval", interval))

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.LogSuccess("Bot stopped gracefully")
		return nil
	}
	return err
}
