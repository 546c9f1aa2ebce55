package commands

// Root command for the Cobra CLI.
// Every subcommand shares the config flags registered here.

import (
	"github.com/spf13/cobra"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
)

var rootCmd = &cobra.Command{
	Use:   "alpha-hunter",
	Short: "Alpha Hunter - Solana token alerts, market reports and crypto Twitter digests",
	Long: `Alpha Hunter polls Birdeye, DeFiLlama, Moralis, Rugcheck and Elfa, ingests tweets from
tracked accounts, and distributes alerts, reports and AI summaries through Telegram, Twitter and Pub/Sub.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().AddFlagSet(config.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(updateTokensCmd)
	rootCmd.AddCommand(alertCmd)
	rootCmd.AddCommand(fetchTweetsCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(embedTweetsCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(authCmd)
}
