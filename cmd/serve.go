package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kilianp07/hydrothermal/api/runs"
	"github.com/kilianp07/hydrothermal/infra/logger"
	"github.com/kilianp07/hydrothermal/infra/metrics"
	"github.com/kilianp07/hydrothermal/infra/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs and metrics over HTTP",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Store.Enabled() {
		return fmt.Errorf("store.path is not configured")
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("run store: %w", err)
	}
	defer func() { _ = st.Close() }()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/", runs.NewHandler(st, cfg.API.Token))
	logger.New("serve").Infof("listening on %s", cfg.API.Addr)
	return metrics.Serve(ctx, cfg.API.Addr, mux)
}
