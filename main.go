package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tournevent/reconciler/internal/recon"
	"github.com/tournevent/reconciler/internal/server"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "reconciler",
	Short:   "Shipment status reconciliation engine - converges order lifecycles on carrier tracking data",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server with the cron trigger endpoint",
	RunE:  runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single reconciliation pass and print the summary",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	deps, err := initDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	deps.logger.Info("Starting shipment reconciler",
		zap.Int("port", deps.cfg.Port),
		zap.String("version", deps.cfg.Version),
		zap.Strings("carriers", deps.registry.Names()),
	)

	srv := server.New(server.Config{
		Port:       deps.cfg.Port,
		CronSecret: deps.cfg.CronSecret,
	}, deps.orchestrator, deps.store, deps.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	deps, err := initDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	summary, err := deps.orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation run: %w", err)
	}
	return printSummary(cmd, summary)
}

func printSummary(cmd *cobra.Command, summary *recon.RunSummary) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
