// cmd/launchpad/simulate.go
package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/app"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/export"
)

// Local addresses used when simulate runs without a config file.
var (
	sandboxAdmin   = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	sandboxMarket  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	sandboxDex     = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	sandboxCreator = common.HexToAddress("0x0000000000000000000000000000000000000c01")
)

var (
	simBuys         string
	simPresale      string
	simSell         uint64
	simExportDir    string
	simExportFormat string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted launch against an in-memory market",
	Long: `simulate creates an asset, buys into it, sells part of the first position and keeps
buying until the asset graduates, then prints every step and the seeded pool.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := simulationConfig()
		if err != nil {
			return err
		}
		lg, err := newLogger(cmd, cfg)
		if err != nil {
			return err
		}
		defer lg.Close()

		sc := app.DefaultScenario(sandboxCreator)
		if sc.Buys, err = parseValues(simBuys); err != nil {
			return err
		}
		if simPresale != "" {
			if sc.Presale, err = config.ParseValue(simPresale); err != nil {
				return fmt.Errorf("invalid presale: %w", err)
			}
		}
		sc.SellPercent = simSell

		a, err := app.New(cmd.Context(), cfg, lg.WithComponent("simulate"))
		if err != nil {
			return err
		}
		report, err := a.Simulate(cmd.Context(), sc)
		if err == nil && simExportDir != "" {
			var path string
			path, err = a.ExportTrades(cmd.Context(), report.Asset, export.ExportOptions{
				Format:    export.ExportFormat(simExportFormat),
				OutputDir: simExportDir,
			})
			if err == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trades exported to %s\n", path)
			}
		}
		if closeErr := a.Close(cmd.Context()); closeErr != nil {
			lg.Warn("Shutdown finished with errors", zap.Error(closeErr))
		}
		if err != nil {
			return err
		}
		return printReport(cmd.OutOrStdout(), report)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simBuys, "buys", "1,5,10,60", "value paid by each buy")
	simulateCmd.Flags().StringVar(&simPresale, "presale", "", "value paid on creation on top of the fee")
	simulateCmd.Flags().Uint64Var(&simSell, "sell-percent", 50, "share of the first buy sold back")
	simulateCmd.Flags().StringVar(&simExportDir, "export-dir", "", "write the trade history into this directory")
	simulateCmd.Flags().StringVar(&simExportFormat, "export-format", string(export.FormatCSV), "trade history format: csv or json")
}

// simulationConfig uses --config when given, otherwise defaults with local addresses.
func simulationConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadConfig(cfgFile)
	}
	return &config.Config{
		Admin:              sandboxAdmin.Hex(),
		MarketAddress:      sandboxMarket.Hex(),
		DexAddress:         sandboxDex.Hex(),
		MaxCurveSteps:      config.DefaultMaxCurveSteps,
		CreationEnabled:    true,
		TokenTemplate:      config.DefaultTokenTemplate,
		BalanceToDex:       config.DefaultBalanceToDex,
		CreateFee:          config.DefaultCreateFee,
		ExchangeFeePercent: config.DefaultExchangeFee,
		DexFeePercent:      config.DefaultDexFee,
		EventBuffer:        config.DefaultEventBuffer,
	}, nil
}

func parseValues(s string) ([]*uint256.Int, error) {
	var out []*uint256.Int
	for _, field := range strings.Split(s, ",") {
		v, err := config.ParseValue(field)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", field, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func amount(v *uint256.Int) string {
	if v == nil || v.IsZero() {
		return "-"
	}
	return config.FormatValue(v)
}

func printReport(w io.Writer, r *app.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "asset %s\n\n", r.Asset.Hex())
	fmt.Fprintln(tw, "ACTION\tACTOR\tVALUE IN\tTOKENS IN\tTOKENS OUT\tVALUE OUT\tRESERVE")
	for _, s := range r.Steps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Action, s.Actor.Hex(), amount(s.ValueIn), amount(s.TokensIn),
			amount(s.TokensOut), amount(s.ValueOut), amount(s.Balance))
	}
	if r.Skipped > 0 {
		fmt.Fprintf(tw, "\n%d buys skipped after graduation\n", r.Skipped)
	}

	if g := r.Graduation; g != nil {
		fmt.Fprintf(tw, "\ngraduated at price %s\tpaired %s tokens with %s\tretired %s\ttopped up %s\n",
			g.Price.Dec(), config.FormatValue(g.TokenAmount), config.FormatValue(g.ValueAmount),
			config.FormatValue(g.Retired), config.FormatValue(g.ToppedUp))
	} else {
		fmt.Fprintf(tw, "\nnot graduated, reserve %s\n", config.FormatValue(r.Position.Balance))
	}
	if r.Reserves != nil {
		fmt.Fprintf(tw, "pool reserves\t%s tokens\t%s native\n",
			config.FormatValue(r.Reserves.Token), config.FormatValue(r.Reserves.Native))
	}
	fmt.Fprintf(tw, "protocol income\t%s\n", config.FormatValue(r.InternalBalance))
	fmt.Fprintf(tw, "creator royalty\t%s\n", config.FormatValue(r.Position.Royalty))
	return tw.Flush()
}
