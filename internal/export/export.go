// Package export writes recorded market trades to CSV or JSON files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// valueDecimals is the base-unit exponent of native value and token amounts.
const valueDecimals = 18

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format     ExportFormat
	StartTime  time.Time
	EndTime    time.Time
	SideFilter string // models.SideBuy or models.SideSell
	Trader     string // hex address
	OutputDir  string
}

// TradeExporter handles trade export functionality
type TradeExporter struct {
	logger *zap.Logger
}

// NewTradeExporter creates a new trade exporter
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		logger: logger.Named("export"),
	}
}

// ExportTrades writes the trades matching options into OutputDir and returns the file path.
func (te *TradeExporter) ExportTrades(trades []*models.Trade, options ExportOptions) (string, error) {
	if options.Format != FormatCSV && options.Format != FormatJSON {
		return "", fmt.Errorf("unsupported format: %s", options.Format)
	}

	filtered := te.filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].OccurredAt.Before(filtered[j].OccurredAt)
	})

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, te.generateFilename(filtered[0].Asset, options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = te.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (te *TradeExporter) filterTrades(trades []*models.Trade, options ExportOptions) []*models.Trade {
	var filtered []*models.Trade

	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.OccurredAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.OccurredAt.After(options.EndTime) {
			continue
		}
		if options.SideFilter != "" && trade.Side != options.SideFilter {
			continue
		}
		if options.Trader != "" && trade.Trader != options.Trader {
			continue
		}
		filtered = append(filtered, trade)
	}

	return filtered
}

func (te *TradeExporter) generateFilename(asset string, options ExportOptions) string {
	timestamp := time.Now().Format("20060102_150405")

	prefix := "trades_all"
	if options.SideFilter != "" {
		prefix = fmt.Sprintf("trades_%s", options.SideFilter)
	}
	if len(asset) >= 10 {
		prefix += "_" + asset[:10]
	}

	return fmt.Sprintf("%s_%s.%s", prefix, timestamp, options.Format)
}

// units renders a base-unit column in whole units.
func units(d decimal.Decimal) string {
	return d.Shift(-valueDecimals).String()
}

// CSVHeaders returns the column names written by the CSV export.
func CSVHeaders() []string {
	return []string{
		"occurred_at", "asset", "trader", "side", "value_in", "tokens_in",
		"tokens_out", "value_out", "fee", "royalty", "reserve_after",
	}
}

func csvRecord(t *models.Trade) []string {
	return []string{
		t.OccurredAt.UTC().Format(time.RFC3339Nano),
		t.Asset,
		t.Trader,
		t.Side,
		units(t.ValueIn),
		units(t.TokensIn),
		units(t.TokensOut),
		units(t.ValueOut),
		units(t.Fee),
		units(t.Royalty),
		units(t.ReserveAfter),
	}
}

func (te *TradeExporter) exportToCSV(trades []*models.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(csvRecord(trade)); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (te *TradeExporter) exportToJSON(trades []*models.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time       `json:"export_time"`
		TradeCount int             `json:"trade_count"`
		Trades     []*models.Trade `json:"trades"`
		Summary    ExportSummary   `json:"summary"`
	}{
		ExportTime: time.Now().UTC(),
		TradeCount: len(trades),
		Trades:     trades,
		Summary:    Summarize(trades),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported trades. Amounts are whole units.
type ExportSummary struct {
	TotalTrades   int             `json:"total_trades"`
	BuyCount      int             `json:"buy_count"`
	SellCount     int             `json:"sell_count"`
	UniqueTraders int             `json:"unique_traders"`
	BuyVolume     decimal.Decimal `json:"buy_volume"`
	SellVolume    decimal.Decimal `json:"sell_volume"`
	Fees          decimal.Decimal `json:"fees"`
	Royalties     decimal.Decimal `json:"royalties"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
}

// Summarize computes statistics over trades, which must be sorted by time.
func Summarize(trades []*models.Trade) ExportSummary {
	summary := ExportSummary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return summary
	}

	summary.StartDate = trades[0].OccurredAt
	summary.EndDate = trades[len(trades)-1].OccurredAt

	traders := make(map[string]struct{})
	var buyVolume, sellVolume, fees, royalties decimal.Decimal
	for _, trade := range trades {
		traders[trade.Trader] = struct{}{}
		fees = fees.Add(trade.Fee)
		royalties = royalties.Add(trade.Royalty)

		switch trade.Side {
		case models.SideBuy:
			summary.BuyCount++
			buyVolume = buyVolume.Add(trade.ValueIn)
		case models.SideSell:
			summary.SellCount++
			sellVolume = sellVolume.Add(trade.ValueOut)
		}
	}

	summary.UniqueTraders = len(traders)
	summary.BuyVolume = buyVolume.Shift(-valueDecimals)
	summary.SellVolume = sellVolume.Shift(-valueDecimals)
	summary.Fees = fees.Shift(-valueDecimals)
	summary.Royalties = royalties.Shift(-valueDecimals)
	return summary
}
