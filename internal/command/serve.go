package command

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/xaenox/thread-analytics/internal/analytics"
	"github.com/xaenox/thread-analytics/internal/api"
	"github.com/xaenox/thread-analytics/internal/models"
	"github.com/xaenox/thread-analytics/internal/server"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve persisted reports over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := newStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize report store: %w", err)
	}
	defer store.Close()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	engine, err := analytics.NewEngine(client, logger, cfg.Report.TopUsers, cfg.Report.MaxWorkers)
	if err != nil {
		return err
	}

	runner := server.RunnerFunc(func(ctx context.Context) (*models.Report, error) {
		threads := client.FetchAllThreads(ctx, api.FetchOptions{})
		return engine.GenerateReport(ctx, threads, cfg.Report.IncludeToolAnalysis), nil
	})

	srv := &http.Server{
		Addr:    serveAddr,
		Handler: server.New(store, runner, logger).Routes(),
	}

	logger.Info("starting report server", zap.String("addr", serveAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
