package cmd

import (
	"context"
	"fmt"

	"payment-reconciliation-service/cmd/reconciler/config"
	"payment-reconciliation-service/internal/training"

	"github.com/spf13/cobra"
)

// sweepCmd represents the sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire stale training requests once",
	Long: `Sweep runs a single pass of the training-request expiry job: pending
requests older than the configured maximum age are closed out and the
instructor penalty is applied.

Examples:
  reconciler sweep --db-dsn=postgres://...`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	if cfg.DatabaseDSN == "" {
		return fmt.Errorf("sweep requires a database, set --db-dsn or RECONCILER_DATABASE_DSN")
	}

	ctx := context.Background()

	_, _, sweepStore, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	summary, err := training.New(sweepStore, cfg.SweepConfig()).SweepOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("swept %d stale requests: %d penalized, %d unassigned, %d failed\n",
		summary.Scanned, summary.Penalized, summary.Unassigned, summary.Failed)
	return nil
}
