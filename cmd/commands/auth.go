package commands

// Rugcheck authentication.
// Signs a login message with the configured Solana wallet and caches the JWT in the data dir,
// where the token updater and reports pick it up.

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/rugcheck"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands for upstream APIs",
}

var authRugcheckCmd = &cobra.Command{
	Use:   "rugcheck",
	Short: "Sign in to Rugcheck with the wallet key and cache the token",
	RunE:  runAuthRugcheck,
}

func init() {
	authCmd.AddCommand(authRugcheckCmd)
}

func runAuthRugcheck(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.LoadConfig(cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := log.Init(log.Options{Dir: cfg.App.LogDir, Debug: cfg.App.Debug, Console: true}); err != nil {
		return err
	}
	defer log.Sync()
	if cfg.Rugcheck.WalletPrivateKey == "" {
		return fmt.Errorf("rugcheck.wallet_private_key is required (env: RUGCHECK_WALLET_PRIVATE_KEY)")
	}

	client, err := rugcheck.New(cfg.Rugcheck, cfg.App.DataDir)
	if err != nil {
		return err
	}
	if err := client.Login(ctx); err != nil {
		log.LogError("Rugcheck login failed", zap.Error(err))
		return err
	}

	tf, err := rugcheck.LoadTokenFromFile(cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("token was not saved: %w", err)
	}
	log.LogSuccess("Rugcheck authenticated",
		zap.String("publicKey", tf.PublicKey),
		zap.String("expiresAt", time.Unix(tf.ExpiresAt, 0).Format(time.RFC3339)))
	return nil
}
