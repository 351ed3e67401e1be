// internal/storage/recorder.go
package storage

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// Recorder persists market events as history rows.
type Recorder struct {
	store  Storage
	logger *zap.Logger
}

// NewRecorder creates a recorder writing into store.
func NewRecorder(store Storage, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger.Named("recorder")}
}

// Attach subscribes the recorder to every market event on bus.
func (r *Recorder) Attach(bus *events.Bus) events.Subscription {
	return bus.SubscribeAll(events.HandlerFunc(r.Handle), events.MarketEvents...)
}

// Handle stores one event. Events without a history table are ignored.
func (r *Recorder) Handle(ctx context.Context, event events.Event) error {
	var err error
	switch e := event.(type) {
	case *events.TokenCreatedEvent:
		err = r.store.SaveAsset(ctx, &models.Asset{
			Address:   e.Token.Hex(),
			Index:     e.Index,
			Creator:   e.Creator.Hex(),
			Name:      e.Name,
			Symbol:    e.Symbol,
			Metadata:  e.Metadata,
			MaxSupply: Amount(e.MaxSupply),
			Active:    true,
		})
	case *events.TradeEvent:
		side := models.SideBuy
		if e.Type() == events.TokensBurned {
			side = models.SideSell
		}
		err = r.store.SaveTrade(ctx, &models.Trade{
			Asset:        e.Token.Hex(),
			Trader:       e.Trader.Hex(),
			Side:         side,
			ValueIn:      Amount(e.ValueIn),
			TokensIn:     Amount(e.TokensIn),
			TokensOut:    Amount(e.TokensOut),
			ValueOut:     Amount(e.ValueOut),
			Fee:          Amount(e.Fee),
			Royalty:      Amount(e.Royalty),
			ReserveAfter: Amount(e.Balance),
			OccurredAt:   e.Timestamp(),
		})
	case *events.GraduatedEvent:
		err = r.store.SaveGraduation(ctx, &models.Graduation{
			Asset:       e.Token.Hex(),
			Dex:         e.Dex.Hex(),
			TokenAmount: Amount(e.TokenAmount),
			ValueAmount: Amount(e.ValueAmount),
			Retired:     Amount(e.Retired),
			ToppedUp:    Amount(e.ToppedUp),
			OccurredAt:  e.Timestamp(),
		})
		if err == nil {
			err = r.store.MarkGraduated(ctx, e.Token, e.Timestamp())
		}
	case *events.StatusChangedEvent:
		err = r.store.SetAssetActive(ctx, e.Token, e.Active)
	case *events.WithdrawalEvent:
		kind := models.WithdrawalIncome
		asset := ""
		if e.Type() == events.RoyaltyWithdrawn {
			kind = models.WithdrawalRoyalty
			asset = e.Token.Hex()
		}
		err = r.store.SaveWithdrawal(ctx, &models.Withdrawal{
			Kind:       kind,
			Asset:      asset,
			Recipient:  e.To.Hex(),
			Amount:     Amount(e.Amount),
			OccurredAt: e.Timestamp(),
		})
	default:
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to record %s: %w", event.Type(), err)
	}
	r.logger.Debug("Event recorded", zap.String("event_type", string(event.Type())))
	return nil
}

// Amount converts a base-unit amount into a numeric column value.
func Amount(v *uint256.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), 0)
}
