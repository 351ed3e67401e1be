// internal/app/history.go
package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rovshanmuradov/launchpad/internal/export"
)

// ExportTrades waits for queued events to be recorded and writes the trade history of
// asset to a file under opts.OutputDir.
func (a *App) ExportTrades(ctx context.Context, asset common.Address, opts export.ExportOptions) (string, error) {
	if err := a.Bus.Flush(ctx); err != nil {
		return "", fmt.Errorf("failed to flush events: %w", err)
	}
	trades, err := a.store.ListTrades(ctx, asset, 0, 0)
	if err != nil {
		return "", fmt.Errorf("failed to list trades: %w", err)
	}
	return export.NewTradeExporter(a.logger.Logger).ExportTrades(trades, opts)
}
