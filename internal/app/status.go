// internal/app/status.go
package app

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/config"
)

// AssetStatus is the public view of one listed asset.
type AssetStatus struct {
	Address   string `json:"address"`
	Symbol    string `json:"symbol"`
	Active    bool   `json:"active"`
	Graduated bool   `json:"graduated"`
	Balance   string `json:"balance"`
	Royalty   string `json:"royalty"`
	Unsold    string `json:"unsold"`
	StepPrice string `json:"step_price,omitempty"`
}

// Status is served on /status.
type Status struct {
	Market          string        `json:"market"`
	InternalBalance string        `json:"internal_balance"`
	Custody         string        `json:"custody"`
	Assets          []AssetStatus `json:"assets"`
	PendingEvents   int           `json:"pending_events"`
	DroppedEvents   uint64        `json:"dropped_events"`
}

// Snapshot collects the current market state. Amounts are rendered in whole units.
func (a *App) Snapshot() Status {
	addr := a.Market.Address()
	stats := a.Bus.Stats()
	st := Status{
		Market:          addr.Hex(),
		InternalBalance: config.FormatValue(a.Market.InternalBalance()),
		Custody:         config.FormatValue(a.Bank.BalanceOf(addr)),
		Assets:          []AssetStatus{},
		PendingEvents:   stats.Pending,
		DroppedEvents:   stats.Dropped,
	}

	for _, asset := range a.Market.Tokens() {
		pos, err := a.Market.Position(asset)
		if err != nil {
			continue
		}
		as := AssetStatus{
			Address:   asset.Hex(),
			Symbol:    pos.Symbol,
			Active:    pos.Active,
			Graduated: pos.Graduated,
			Balance:   config.FormatValue(pos.Balance),
			Royalty:   config.FormatValue(pos.Royalty),
			Unsold:    config.FormatValue(a.Ledger.BalanceOf(asset, addr)),
		}
		if price, err := a.Market.StepPrice(asset); err == nil {
			as.StepPrice = config.FormatValue(price)
		}
		st.Assets = append(st.Assets, as)
	}
	return st
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.Snapshot()); err != nil {
		a.logger.Warn("Failed to write status", zap.Error(err))
	}
}
