package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"daoListener/internal/chain"
	"daoListener/internal/config"
	"daoListener/internal/listener"
	"daoListener/internal/storage"
	"daoListener/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "listener",
		Short:        "DAO chain event listener",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the listener",
		RunE:  runListener,
	}

	runCmd.Flags().String("blockchain-url", "", "chain node endpoint")
	runCmd.Flags().Int("block-creation-interval", 6, "minimum seconds between head checks")
	runCmd.Flags().String("retry-delays", "5,10,30,60,120", "backoff schedule in seconds (comma-separated)")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	runCmd.Flags().Uint64("genesis-height", 0, "checkpoint base height before the first applied block")
	runCmd.Flags().Uint64("max-blocks-per-cycle", 100, "catch-up batch cap per poll cycle")
	runCmd.Flags().String("metrics-addr", ":9090", "metrics/health listen address")
	runCmd.Flags().String("audit-log", "", "optional JSONL audit log path for applied events")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE:  runMigrations,
	}

	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN (or PG_DSN)")
	migrateCmd.Flags().String("migrations-dir", "migrations/postgres", "path to migration files")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runListener(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient := chain.NewClient(cfg.BlockchainURL)
	defer chainClient.Close()

	store, err := postgres.NewStore(ctx, cfg.PostgresDSN, cfg.GenesisHeight)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	lst := listener.New(listener.Config{
		PollInterval:      cfg.PollInterval,
		MaxBlocksPerCycle: cfg.MaxBlocksPerCycle,
		GenesisHeight:     cfg.GenesisHeight,
		RetryDelays:       cfg.RetryDelays,
	}, chainClient, store, logger)

	if cfg.AuditLogPath != "" {
		lst = lst.WithAuditor(storage.NewAuditLog(cfg.AuditLogPath))
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, logger)
	}

	logger.Info("listener configured",
		zap.String("blockchain_url", cfg.BlockchainURL),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Durations("retry_delays", cfg.RetryDelays),
		zap.Uint64("genesis_height", cfg.GenesisHeight),
		zap.Uint64("max_blocks_per_cycle", cfg.MaxBlocksPerCycle),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	return lst.Run(ctx)
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}

func runMigrations(cmd *cobra.Command, _ []string) error {
	dsn, _ := cmd.Flags().GetString("pg-dsn")
	if dsn == "" {
		dsn = os.Getenv("PG_DSN")
	}
	if dsn == "" {
		return fmt.Errorf("pg dsn is required")
	}

	dir, _ := cmd.Flags().GetString("migrations-dir")
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return fmt.Errorf("stat migrations dir %s: %w", absDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", absDir)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(absDir), dsn)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")
			return nil
		}
		return err
	}

	fmt.Println("migrations applied")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
