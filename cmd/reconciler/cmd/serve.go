package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"payment-reconciliation-service/cmd/reconciler/config"
	"payment-reconciliation-service/internal/bankclient"
	"payment-reconciliation-service/internal/ledger"
	"payment-reconciliation-service/internal/reconciler"
	"payment-reconciliation-service/internal/server"
	"payment-reconciliation-service/internal/training"
	"payment-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation HTTP server",
	Long: `Serve starts the HTTP API and the background training-request sweep.

Endpoints:
  POST /payments/check      - reconcile a code against the bank statement
  GET  /payments/bank/ping  - verify the configured bank credential
  GET  /health              - liveness probe
  GET  /metrics             - Prometheus metrics

Examples:
  reconciler serve
  RECONCILER_BANK_TOKEN=... RECONCILER_DATABASE_DSN=... reconciler serve
  reconciler serve --bank-token=... --db-dsn=postgres://...`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.ServerAddr = addr
	}

	log := logger.WithComponent("serve")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bank := bankclient.New(cfg.BankConfig())
	if !bank.HasToken() {
		log.Warn("bank token is not configured, checks will report not_configured")
	}

	store, users, sweepStore, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	service := reconciler.New(bank, store, users, cfg.ReconcilerConfig())
	srv := server.New(service, bank, cfg.ServerConfig())

	sweeper := training.New(sweepStore, cfg.SweepConfig())
	go sweeper.Run(ctx)

	return srv.Run(ctx)
}

// openStores connects the ledger and training stores. Without a database
// DSN both fall back to in-memory stores, which is only useful for local
// experiments: nothing survives a restart and no users exist to credit.
func openStores(ctx context.Context, cfg *config.Config) (ledger.Ledger, ledger.UserFinder, training.Store, func(), error) {
	log := logger.WithComponent("serve")

	if cfg.DatabaseDSN == "" {
		log.Warn("no database configured, using volatile in-memory stores")
		mem := ledger.NewMemoryStore()
		return mem, mem, training.NewMemoryStore(), func() {}, nil
	}

	store, err := ledger.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	sweepStore, err := training.NewSQLStore(ctx, store.DB())
	if err != nil {
		store.Close()
		return nil, nil, nil, nil, err
	}
	return store, store, sweepStore, func() { store.Close() }, nil
}
