package cmd

import (
	"context"
	"fmt"

	"payment-reconciliation-service/cmd/reconciler/config"
	"payment-reconciliation-service/internal/bankclient"

	"github.com/spf13/cobra"
)

// pingCmd represents the ping command
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Verify the configured bank credential",
	Long: `Ping calls the bank's client-info endpoint with the configured token and
reports the account holder it resolves to. Only the token's last four
characters are ever printed.

Examples:
  reconciler ping
  RECONCILER_BANK_TOKEN=... reconciler ping`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	bank := bankclient.New(cfg.BankConfig())
	if !bank.HasToken() {
		return fmt.Errorf("bank token is not configured")
	}

	info, err := bank.ClientInfo(context.Background())
	if err != nil {
		return fmt.Errorf("ping failed for token ...%s: %w", bank.TokenTail(), err)
	}

	fmt.Printf("ok: token ...%s belongs to %q (%d accounts, %d jars)\n",
		bank.TokenTail(), info.Name, len(info.Accounts), len(info.Jars))
	return nil
}
