package commands

// HTTP server for cron-triggered jobs, search, visualization and the Telegram webhook.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uneeb123/alpha-hunter-sub000/internal/api"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (job routes, ask, clusters, Telegram webhook)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, config.ValidateServe)
	if err != nil {
		return err
	}
	defer a.close()

	deps, err := a.apiDeps(ctx)
	if err != nil {
		return err
	}
	if a.cfg.App.CronSecret == "" && a.cfg.App.ReadToken == "" {
		log.LogWarn("No cron_secret or read_token set, job, ask and visualization routes are unauthenticated")
	}
	srv := api.NewServer(deps, api.Options{
		CronSecret:    a.cfg.App.CronSecret,
		ReadToken:     a.cfg.App.ReadToken,
		WebhookSecret: a.cfg.Telegram.WebhookSecret,
	})

	httpSrv := &http.Server{
		Addr:              a.cfg.App.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.LogSuccess("HTTP server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.LogInfo("Shutdown signal received, draining HTTP server...")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.LogWarn("Timeout waiting for requests to finish", zap.Error(err))
		return err
	}
	log.LogSuccess("HTTP server stopped gracefully")
	return nil
}

// apiDeps wires every route. Features whose backing service is unavailable answer 503.
func (a *app) apiDeps(ctx context.Context) (api.Deps, error) {
	deps := api.Deps{Cache: a.cache}

	updater := a.tokenUpdater(ctx)
	deps.UpdateTokens = func(ctx context.Context) (any, error) { return updater.Update(ctx) }

	alertSvc, err := a.alertService(ctx)
	if err != nil {
		return deps, err
	}
	deps.Alert = func(ctx context.Context) (any, error) { return alertSvc.Run(ctx) }

	fetcher := a.fetcher()
	deps.FetchTweets = func(ctx context.Context) (any, error) { return fetcher.Fetch(ctx) }

	pipe, err := a.pipeline(ctx)
	if err != nil {
		return deps, err
	}
	deps.PipelineCheck = func(ctx context.Context) (any, error) { return pipe.Check(ctx) }

	b, err := a.bot()
	if err != nil {
		return deps, err
	}
	deps.Telegram = b

	if embedder, err := a.embedder(ctx); err != nil {
		log.LogWarn("Vector index unavailable, embedding and search disabled", zap.Error(err))
	} else {
		deps.EmbedTweets = func(ctx context.Context) (any, error) { return embedder.Embed(ctx) }
		if asker, err := a.asker(ctx); err == nil {
			deps.Ask = asker
		}
		if builder, err := a.clusters(ctx); err == nil && builder != nil {
			deps.Clusters = builder
		}
	}
	return deps, nil
}
