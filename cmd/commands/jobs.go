package commands

// One-shot jobs. Each mirrors an HTTP job route so an external scheduler can run either.

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uneeb123/alpha-hunter-sub000/internal/features/reports"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/metrics"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"
)

// runJob opens the app, runs fn and prints its result as JSON.
func runJob(cmd *cobra.Command, name string, fn func(ctx context.Context, a *app) (any, error)) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, config.ValidateDatabase)
	if err != nil {
		return err
	}
	defer a.close()

	start := time.Now()
	res, err := fn(ctx, a)
	metrics.ObserveJob(name, err)
	if err != nil {
		log.LogError("Job failed", zap.String("job", name), zap.Error(err))
		return err
	}
	log.LogSuccess("Job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	return printJSON(res)
}

func printJSON(v any) error {
	if v == nil {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables and the vector schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(cmd, "migrate", func(ctx context.Context, a *app) (any, error) {
			if err := a.store.Migrate(ctx); err != nil {
				return nil, err
			}
			// Opening the index ensures the pgvector extension and table exist.
			if _, err := a.vectorIndex(ctx); err != nil {
				return nil, err
			}
			return map[string]bool{"migrated": true}, nil
		})
	},
}

var updateTokensCmd = &cobra.Command{
	Use:   "update-tokens",
	Short: "Pull the Birdeye token list and upsert every token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(cmd, "update_tokens", func(ctx context.Context, a *app) (any, error) {
			return a.tokenUpdater(ctx).Update(ctx)
		})
	},
}

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Evaluate recently updated tokens and send alerts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(cmd, "alert", func(ctx context.Context, a *app) (any, error) {
			svc, err := a.alertService(ctx)
			if err != nil {
				return nil, err
			}
			return svc.Run(ctx)
		})
	},
}

var fetchTweetsCmd = &cobra.Command{
	Use:   "fetch-tweets",
	Short: "Collect new tweets from every tracked account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(cmd, "fetch_tweets", func(ctx context.Context, a *app) (any, error) {
			return a.fetcher().Fetch(ctx)
		})
	},
}

var trackCmd = &cobra.Command{
	Use:   "track <username>...",
	Short: "Start tracking Twitter accounts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, "track", func(ctx context.Context, a *app) (any, error) {
			f := a.fetcher()
			var users []*store.User
			for _, name := range args {
				u, err := f.Track(ctx, strings.TrimPrefix(name, "@"))
				if err != nil {
					return nil, fmt.Errorf("track %s: %w", name, err)
				}
				users = append(users, u)
			}
			return users, nil
		})
	},
}

var embedTweetsCmd = &cobra.Command{
	Use:   "embed-tweets",
	Short: "Embed tweets that have no vector yet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(cmd, "embed_tweets", func(ctx context.Context, a *app) (any, error) {
			e, err := a.embedder(ctx)
			if err != nil {
				return nil, err
			}
			return e.Embed(ctx)
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <address>",
	Short: "Print the stored row for a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, "token", func(ctx context.Context, a *app) (any, error) {
			return a.store.GetToken(ctx, args[0])
		})
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Alpha summary pipeline: define alphas, start runs, advance them",
}

var pipelineAlphaCmd = &cobra.Command{
	Use:   "alpha <name> <handle>...",
	Short: "Create or replace an alpha, a named group of tracked accounts",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, "pipeline_alpha", func(ctx context.Context, a *app) (any, error) {
			desc, _ := cmd.Flags().GetString("description")
			handles := make(pq.StringArray, 0, len(args)-1)
			for _, h := range args[1:] {
				handles = append(handles, strings.ToLower(strings.TrimPrefix(h, "@")))
			}
			alpha := &store.Alpha{Name: args[0], Description: desc, Handles: handles}
			if err := a.store.SaveAlpha(ctx, alpha); err != nil {
				return nil, err
			}
			return alpha, nil
		})
	},
}

var pipelineAlphasCmd = &cobra.Command{
	Use:   "alphas",
	Short: "List configured alphas",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(cmd, "pipeline_alphas", func(ctx context.Context, a *app) (any, error) {
			return a.store.ListAlphas(ctx)
		})
	},
}

var pipelineStartCmd = &cobra.Command{
	Use:   "start <alpha>",
	Short: "Queue a summary run for an alpha",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, "pipeline_start", func(ctx context.Context, a *app) (any, error) {
			svc, err := a.pipeline(ctx)
			if err != nil {
				return nil, err
			}
			return svc.Start(ctx, args[0])
		})
	},
}

var pipelineCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Advance every unfinished run by one stage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runJob(cmd, "pipeline_check", func(ctx context.Context, a *app) (any, error) {
			svc, err := a.pipeline(ctx)
			if err != nil {
				return nil, err
			}
			return svc.Check(ctx)
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a market report as Telegram HTML",
}

var reportYieldsCmd = &cobra.Command{
	Use:   "yields",
	Short: "Top DeFiLlama yields",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runReport(cmd, func(ctx context.Context, r *reports.Service) (string, error) {
			f := reports.DefaultYieldFilter()
			if chain, _ := cmd.Flags().GetString("chain"); chain != "" {
				f.Chain = chain
			}
			return r.Yields(ctx, f)
		})
	},
}

var reportTrendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Most mentioned tickers on crypto Twitter",
	RunE: func(cmd *cobra.Command, _ []string) error {
		window, _ := cmd.Flags().GetString("window")
		return runReport(cmd, func(ctx context.Context, r *reports.Service) (string, error) {
			return r.Trending(ctx, window)
		})
	},
}

var reportTokenCmd = &cobra.Command{
	Use:   "token <address>",
	Short: "Market, holder and risk brief for one token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd, func(ctx context.Context, r *reports.Service) (string, error) {
			return r.TokenBrief(ctx, args[0])
		})
	},
}

var reportFlowCmd = &cobra.Command{
	Use:   "flow <address>",
	Short: "Buy and sell pressure for one token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		since, _ := cmd.Flags().GetDuration("since")
		return runReport(cmd, func(ctx context.Context, r *reports.Service) (string, error) {
			return r.Flow(ctx, args[0], since)
		})
	},
}

func runReport(cmd *cobra.Command, fn func(ctx context.Context, r *reports.Service) (string, error)) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, config.ValidateDatabase)
	if err != nil {
		return err
	}
	defer a.close()

	text, err := fn(ctx, a.reports())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

func init() {
	pipelineAlphaCmd.Flags().String("description", "", "What the alpha covers, used in prompts")
	pipelineCmd.AddCommand(pipelineAlphaCmd, pipelineAlphasCmd, pipelineStartCmd, pipelineCheckCmd)

	reportYieldsCmd.Flags().String("chain", "", "Chain to filter pools by (default Solana)")
	reportTrendingCmd.Flags().String("window", "24h", "Mention window, e.g. 1h, 24h, 7d")
	reportFlowCmd.Flags().Duration("since", 24*time.Hour, "How far back to read swaps")
	reportCmd.AddCommand(reportYieldsCmd, reportTrendingCmd, reportTokenCmd, reportFlowCmd)
}
