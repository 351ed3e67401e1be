// cmd/launchpad/export.go
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/launchpad/internal/export"
	"github.com/rovshanmuradov/launchpad/internal/storage/postgres"
)

var (
	exportAsset  string
	exportFormat string
	exportDir    string
	exportSide   string
	exportSince  time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the recorded trade history of an asset",
	Long:  `export reads the trades of --asset from postgres_url and writes them as CSV or JSON.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(exportAsset) {
			return fmt.Errorf("invalid asset %q", exportAsset)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.PostgresURL == "" {
			return errors.New("export needs postgres_url in the configuration")
		}
		lg, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}
		defer lg.Close()
		defer lg.TrackPerformance("export")()
		log := lg.WithComponent("export")

		store, err := postgres.NewStorage(cmd.Context(), cfg.PostgresURL, postgres.DefaultOptions(), log)
		if err != nil {
			return err
		}
		defer store.Close()

		trades, err := store.ListTrades(cmd.Context(), common.HexToAddress(exportAsset), 0, 0)
		if err != nil {
			return fmt.Errorf("failed to list trades: %w", err)
		}
		opts := export.ExportOptions{
			Format:     export.ExportFormat(exportFormat),
			SideFilter: exportSide,
			OutputDir:  exportDir,
		}
		if exportSince > 0 {
			opts.StartTime = time.Now().Add(-exportSince)
		}
		path, err := export.NewTradeExporter(log).ExportTrades(trades, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportAsset, "asset", "", "asset address")
	exportCmd.Flags().StringVar(&exportFormat, "format", string(export.FormatCSV), "csv or json")
	exportCmd.Flags().StringVar(&exportDir, "out", "exports", "output directory")
	exportCmd.Flags().StringVar(&exportSide, "side", "", "only buy or sell trades")
	exportCmd.Flags().DurationVar(&exportSince, "since", 0, "only trades newer than this")
	_ = exportCmd.MarkFlagRequired("asset")
}
