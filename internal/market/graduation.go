// internal/market/graduation.go
package market

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/events"
)

// Graduation describes the hand-off of an asset to the pool.
type Graduation struct {
	Asset       common.Address
	Price       *uint256.Int // marginal curve price the pairing was made at
	TokenAmount *uint256.Int // units seeded into the pool
	ValueAmount *uint256.Int // reserve seeded into the pool
	Retired     *uint256.Int // unsold units burned because the pool needed fewer
	ToppedUp    *uint256.Int // units minted because the pool needed more than were unsold
}

func (m *Market) threshold(pos *Position) *uint256.Int {
	if pos.Threshold != nil {
		return pos.Threshold
	}
	return m.settings.BalanceToDex
}

func (m *Market) maybeGraduate(ctx context.Context, j *journal, asset common.Address, pos *Position) (*Graduation, error) {
	threshold := m.threshold(pos)
	if threshold.IsZero() || pos.Balance.Lt(threshold) {
		return nil, nil
	}
	return m.graduate(ctx, j, asset, pos)
}

// graduate pairs the whole reserve with floor(reserve/price) units at the price the curve
// reached, retiring or minting the difference to the unsold supply. Seeding the pool cannot
// be undone, so it is the last collaborator call of every entry point that reaches here.
func (m *Market) graduate(ctx context.Context, j *journal, asset common.Address, pos *Position) (*Graduation, error) {
	unsold := m.unsold(asset)
	price, err := curve.SpotPrice(unsold, pos.MaxSupply, pos.Curve)
	if err != nil {
		return nil, fmt.Errorf("failed to price graduation: %w", err)
	}
	pair := new(uint256.Int).Div(pos.Balance, price)
	if pair.IsZero() {
		return nil, fmt.Errorf("%w: reserve %s is below one unit at price %s", ErrZeroAmount, pos.Balance.Dec(), price.Dec())
	}

	g := &Graduation{
		Asset:       asset,
		Price:       price,
		TokenAmount: pair,
		ValueAmount: new(uint256.Int).Set(pos.Balance),
		Retired:     new(uint256.Int),
		ToppedUp:    new(uint256.Int),
	}
	switch unsold.Cmp(pair) {
	case 1:
		g.Retired.Sub(unsold, pair)
		if err := m.burnTokens(j, asset, m.address, g.Retired); err != nil {
			return nil, err
		}
	case -1:
		g.ToppedUp.Sub(pair, unsold)
		if err := m.mintTokens(j, asset, m.address, g.ToppedUp); err != nil {
			return nil, err
		}
	}

	dex := m.settings.DexAddress
	if err := m.transferTokens(j, asset, m.address, dex, pair); err != nil {
		return nil, err
	}
	if err := m.moveValue(ctx, j, m.address, dex, g.ValueAmount); err != nil {
		return nil, err
	}
	if err := m.dex.SeedLiquidity(asset, pair, g.ValueAmount); err != nil {
		return nil, fmt.Errorf("failed to seed liquidity: %w", err)
	}

	j.savePosition(pos)
	pos.Balance = new(uint256.Int)
	pos.Active = false
	pos.RoyaltyLock = false
	pos.Graduated = true

	j.emit(&events.GraduatedEvent{
		BaseEvent:   events.NewBase(events.TokenGraduated),
		Token:       asset,
		Dex:         dex,
		TokenAmount: cloneInt(pair),
		ValueAmount: cloneInt(g.ValueAmount),
		Retired:     cloneInt(g.Retired),
		ToppedUp:    cloneInt(g.ToppedUp),
	})
	m.logger.Info("Asset graduated",
		zap.String("asset", asset.Hex()),
		zap.String("price", price.Dec()),
		zap.String("tokens", pair.Dec()),
		zap.String("value", g.ValueAmount.Dec()),
		zap.String("retired", g.Retired.Dec()),
		zap.String("topped_up", g.ToppedUp.Dec()))
	return g, nil
}
