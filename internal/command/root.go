// Package command holds the analytics CLI.
package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xaenox/thread-analytics/internal/storage"
	"github.com/xaenox/thread-analytics/pkg/config"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Aggregate conversation threads from the remote agent API",
	Long: `Fetches thread records from the remote agent API, reconstructs each
thread's conversation and tool usage, and folds everything into per-user
and per-date statistics.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
}

// setup loads configuration and builds the production logger shared by
// every command.
func setup() (*config.Config, *zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Sync()
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger, nil
}

// newStore picks the report store the way the configuration asks for.
func newStore(cfg *config.Config, logger *zap.Logger) (storage.ReportStore, error) {
	if cfg.Database.UseInMemory {
		logger.Info("using in-memory report store")
		return storage.NewMemoryStore(), nil
	}

	logger.Info("using PostgreSQL report store")
	return storage.NewPostgresStore(storage.DatabaseConfig{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		DBName:      cfg.Database.DBName,
		SSLMode:     cfg.Database.SSLMode,
		UseInMemory: cfg.Database.UseInMemory,
	}, logger)
}
