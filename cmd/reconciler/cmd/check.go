package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"payment-reconciliation-service/cmd/reconciler/config"
	"payment-reconciliation-service/internal/bankclient"
	"payment-reconciliation-service/internal/reconciler"

	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <code>",
	Short: "Run one reconciliation check from the terminal",
	Long: `Check reconciles a single code against the bank statement and prints the
outcome as JSON, exactly as the HTTP endpoint would report it.

Examples:
  reconciler check ABC123
  reconciler check ABC123 --db-dsn=postgres://...`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	ctx := context.Background()

	store, users, _, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	bank := bankclient.New(cfg.BankConfig())
	service := reconciler.New(bank, store, users, cfg.ReconcilerConfig())

	outcome := service.CheckByCode(ctx, args[0])

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		return err
	}

	if !outcome.Found {
		return fmt.Errorf("payment not found: %s", outcome.Reason)
	}
	return nil
}
