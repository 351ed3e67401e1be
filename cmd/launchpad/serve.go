// cmd/launchpad/serve.go
package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the market and serve /metrics and /status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		lg, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}
		defer lg.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, lg.WithComponent("serve"))
		if err != nil {
			lg.LogError("Failed to start", err)
			return err
		}
		if err := a.Run(ctx); err != nil {
			lg.LogError("Server stopped with error", err)
			return err
		}
		lg.Info("👋 Launchpad shut down gracefully", zap.String("market", cfg.MarketAddress))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
