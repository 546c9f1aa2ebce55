package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bot "github.com/uneeb123/alpha-hunter-sub000/bots_monitor"
	"github.com/uneeb123/alpha-hunter-sub000/internal/archive"
	"github.com/uneeb123/alpha-hunter-sub000/internal/cache"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/birdeye"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/defillama"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/elfa"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/llm"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/moralis"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/rugcheck"
	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/twitter"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/alerts"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/ask"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/clustering"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/pipeline"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/reports"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/tokens"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/tweets"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	storage "github.com/uneeb123/alpha-hunter-sub000/internal/infra/fs"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/metrics"
	"github.com/uneeb123/alpha-hunter-sub000/internal/notify"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store/vectors"
)

// app holds the shared dependencies of one command invocation. Optional parts are built
// on first use so one-shot jobs only connect to what they need.
type app struct {
	cfg     *config.Config
	store   *store.Store
	cache   cache.Cache
	closers []func()

	archive archive.Store
	index   vectors.Index
	tg      *tgbotapi.BotAPI
	fanout  notify.Notifier
	rug     *rugcheck.Client
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newApp(ctx context.Context, cmd *cobra.Command, validate func(*config.Config) error) (*app, error) {
	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := log.Init(log.Options{Dir: cfg.App.LogDir, Debug: cfg.App.Debug, Console: true}); err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			log.LogError("Invalid configuration", zap.Error(err))
			return nil, err
		}
	}
	metrics.Init()

	a := &app{cfg: cfg}
	a.store, err = store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = a.store.Close() })

	a.cache, err = cache.New(ctx, cfg.Redis)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = a.cache.Close() })
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	log.Sync()
}

func (a *app) archiveStore(ctx context.Context) archive.Store {
	if a.archive != nil {
		return a.archive
	}
	s, closeFn, err := archive.Open(ctx, a.cfg.Archive)
	if err != nil {
		log.LogWarn("Raw payload archive disabled", zap.Error(err))
		a.archive = archive.Nop{}
		return a.archive
	}
	a.closers = append(a.closers, func() { _ = closeFn() })
	a.archive = s
	return s
}

func (a *app) vectorIndex(ctx context.Context) (vectors.Index, error) {
	if a.index != nil {
		return a.index, nil
	}
	idx, closeFn, err := vectors.Open(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeFn)
	a.index = idx
	return idx, nil
}

func (a *app) telegram() (*tgbotapi.BotAPI, error) {
	if a.tg != nil {
		return a.tg, nil
	}
	if a.cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("telegram.bot_token is required (env: TELEGRAM_BOT_TOKEN)")
	}
	api, err := tgbotapi.NewBotAPI(a.cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	log.LogInfo("Telegram bot authorized", zap.String("username", api.Self.UserName))
	a.tg = api
	return api, nil
}

func (a *app) rugcheck() *rugcheck.Client {
	if a.rug != nil {
		return a.rug
	}
	c, err := rugcheck.New(a.cfg.Rugcheck, a.cfg.App.DataDir)
	if err != nil {
		log.LogWarn("Rugcheck wallet key invalid, using anonymous access", zap.Error(err))
		c, _ = rugcheck.New(config.RugcheckConfig{BaseURL: a.cfg.Rugcheck.BaseURL}, "")
	}
	a.rug = c
	return c
}

// notifier returns the Telegram notifier and the fan-out notifier, which publishes to
// Pub/Sub when configured.
func (a *app) notifier(ctx context.Context) (notify.Notifier, notify.Notifier, error) {
	api, err := a.telegram()
	if err != nil {
		return nil, nil, err
	}
	if a.fanout == nil {
		a.fanout = notify.Nop{}
		if a.cfg.PubSub.ProjectID != "" && a.cfg.PubSub.Topic != "" {
			ps, err := notify.NewPubSub(ctx, a.cfg.PubSub)
			if err != nil {
				return nil, nil, err
			}
			a.closers = append(a.closers, func() { _ = ps.Close() })
			a.fanout = ps
		}
	}
	return notify.NewTelegram(api), a.fanout, nil
}

func (a *app) tokenUpdater(ctx context.Context) *tokens.Updater {
	return tokens.NewUpdater(birdeye.New(a.cfg.Birdeye), a.store, tokens.Options{
		Archive: a.archiveStore(ctx),
		Rug:     a.rugcheck(),
	})
}

func (a *app) alertService(ctx context.Context) (*alerts.Service, error) {
	tg, fanout, err := a.notifier(ctx)
	if err != nil {
		return nil, err
	}
	return alerts.NewService(a.store, tg, alerts.Options{
		Thresholds: alerts.ThresholdsFromConfig(a.cfg.Alerts),
		Lookback:   a.cfg.Alerts.LookbackWindow,
		Blocklist:  storage.NewBlocklist(a.cfg.App.DataDir),
		Cache:      a.cache,
		Fanout:     fanout,
	}), nil
}

func (a *app) fetcher() *tweets.Fetcher {
	return tweets.NewFetcher(twitter.New(a.cfg.Twitter), a.store, 0)
}

func (a *app) embedder(ctx context.Context) (*tweets.Embedder, error) {
	idx, err := a.vectorIndex(ctx)
	if err != nil {
		return nil, err
	}
	return tweets.NewEmbedder(a.store, llm.NewOpenAI(a.cfg.OpenAI), idx, tweets.EmbedOptions{
		BatchSize:   a.cfg.Embeddings.BatchSize,
		Concurrency: a.cfg.Embeddings.Concurrency,
	}), nil
}

func (a *app) pipeline(ctx context.Context) (*pipeline.Service, error) {
	tg, fanout, err := a.notifier(ctx)
	if err != nil {
		return nil, err
	}
	opts := pipeline.Options{}
	if a.cfg.Fal.APIKey != "" {
		opts.Images = llm.NewFal(a.cfg.Fal)
	}
	if a.cfg.Twitter.UserToken != "" {
		opts.Thread = twitter.New(a.cfg.Twitter)
	}
	return pipeline.NewService(a.store, llm.NewCompleter(a.cfg), notify.Multi{tg, fanout}, opts), nil
}

func (a *app) reports() *reports.Service {
	src := reports.Sources{
		Pools:    defillama.New(a.cfg.DefiLlama),
		Overview: birdeye.New(a.cfg.Birdeye),
		Rug:      a.rugcheck(),
	}
	if a.cfg.Elfa.APIKey != "" {
		src.Trends = elfa.New(a.cfg.Elfa)
	}
	if a.cfg.Moralis.APIKey != "" {
		src.Holders = moralis.New(a.cfg.Moralis)
	}
	return reports.NewService(src, a.cache)
}

func (a *app) asker(ctx context.Context) (*ask.Service, error) {
	idx, err := a.vectorIndex(ctx)
	if err != nil {
		return nil, err
	}
	return ask.NewService(llm.NewOpenAI(a.cfg.OpenAI), idx, llm.NewCompleter(a.cfg), 0), nil
}

// clusters returns nil when the configured index cannot list its vectors.
func (a *app) clusters(ctx context.Context) (*clustering.Builder, error) {
	idx, err := a.vectorIndex(ctx)
	if err != nil {
		return nil, err
	}
	lister, err := vectors.AsLister(idx)
	if err != nil {
		log.LogWarn("Cluster visualization disabled", zap.Error(err))
		return nil, nil
	}
	return clustering.NewBuilder(lister, llm.NewCompleter(a.cfg), 0), nil
}

func (a *app) bot() (*bot.Bot, error) {
	api, err := a.telegram()
	if err != nil {
		return nil, err
	}
	return bot.New(api, a.store, a.reports(), bot.Options{
		Cache:       a.cache,
		Blocklist:   storage.NewBlocklist(a.cfg.App.DataDir),
		AdminChatID: a.cfg.Telegram.DefaultChatID,
	}), nil
}
