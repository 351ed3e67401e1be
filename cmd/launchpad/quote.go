// cmd/launchpad/quote.go
package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/fees"
)

type quoteRequest struct {
	Curve       string // comma-separated step prices in base units
	Supply      string
	Sold        string
	Buy         string
	Sell        string
	Royalty     string
	ExchangeFee string
}

var quoteReq quoteRequest

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Preview a curve and the result of a buy or sell",
	Long: `quote prints the step layout of a price curve and previews what a buy of --buy
value or a sale of --sell units would return from a position where --sold units are
already sold. Amounts are whole units; curve prices are base units per base unit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuote(cmd.OutOrStdout(), quoteReq)
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteReq.Curve, "curve", "1,2,3,4,5", "step prices")
	quoteCmd.Flags().StringVar(&quoteReq.Supply, "supply", "1000", "max supply")
	quoteCmd.Flags().StringVar(&quoteReq.Sold, "sold", "0", "units already sold")
	quoteCmd.Flags().StringVar(&quoteReq.Buy, "buy", "1", "value paid for a buy (0 to skip)")
	quoteCmd.Flags().StringVar(&quoteReq.Sell, "sell", "0", "units sold back (0 to skip)")
	quoteCmd.Flags().StringVar(&quoteReq.Royalty, "royalty", "10", "creator royalty percent")
	quoteCmd.Flags().StringVar(&quoteReq.ExchangeFee, "exchange-fee", config.DefaultExchangeFee, "protocol fee percent")
}

func parseCurve(s string) ([]*uint256.Int, error) {
	var prices []*uint256.Int
	for _, field := range strings.Split(s, ",") {
		p, err := uint256.FromDecimal(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("invalid curve price %q: %w", field, err)
		}
		prices = append(prices, p)
	}
	return prices, nil
}

func runQuote(w io.Writer, req quoteRequest) error {
	prices, err := parseCurve(req.Curve)
	if err != nil {
		return err
	}
	values := map[string]*uint256.Int{}
	for name, raw := range map[string]string{"supply": req.Supply, "sold": req.Sold, "buy": req.Buy, "sell": req.Sell} {
		if values[name], err = config.ParseValue(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	royalty, err := config.ParsePercent(req.Royalty)
	if err != nil {
		return fmt.Errorf("invalid royalty: %w", err)
	}
	exchangeFee, err := config.ParsePercent(req.ExchangeFee)
	if err != nil {
		return fmt.Errorf("invalid exchange fee: %w", err)
	}

	supply := values["supply"]
	if err := curve.Validate(prices, supply, len(prices)); err != nil {
		return err
	}
	if values["sold"].Gt(supply) {
		return fmt.Errorf("sold %s exceeds supply %s", req.Sold, req.Supply)
	}
	unsold := new(uint256.Int).Sub(supply, values["sold"])

	steps, err := curve.Steps(supply, prices)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tFROM\tTO\tPRICE")
	for i, s := range steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, config.FormatValue(s.Start), config.FormatValue(s.End), s.Price.Dec())
	}
	spot, err := curve.SpotPrice(unsold, supply, prices)
	if err != nil {
		return err
	}
	fmt.Fprintf(tw, "\nnext unit price\t%s\n", spot.Dec())

	if buy := values["buy"]; !buy.IsZero() {
		split := fees.SplitInbound(buy, exchangeFee, royalty)
		out, err := curve.BuyAmountOut(split.Principal, unsold, supply, prices)
		if err != nil {
			return err
		}
		cost, err := curve.Cost(out, unsold, supply, prices)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "\nbuy %s\tfee %s\troyalty %s\tprincipal %s\ttokens out %s\tcost %s\n",
			config.FormatValue(buy), config.FormatValue(split.Fee), config.FormatValue(split.Royalty),
			config.FormatValue(split.Principal), config.FormatValue(out), config.FormatValue(cost))
	}
	if sell := values["sell"]; !sell.IsZero() {
		gross, err := curve.SellValueOut(sell, unsold, supply, prices)
		if err != nil {
			return err
		}
		split := fees.SplitOutbound(gross, exchangeFee, royalty)
		fmt.Fprintf(tw, "\nsell %s\tgross %s\tfee %s\troyalty %s\tvalue out %s\n",
			config.FormatValue(sell), config.FormatValue(gross), config.FormatValue(split.Fee),
			config.FormatValue(split.Royalty), config.FormatValue(split.Principal))
	}
	return tw.Flush()
}
