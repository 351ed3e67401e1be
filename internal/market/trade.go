// internal/market/trade.go
package market

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/fees"
)

// MintResult reports a purchase from the curve.
type MintResult struct {
	Asset      common.Address
	Split      fees.Breakdown
	TokensOut  *uint256.Int
	Graduation *Graduation // set when the purchase graduated the asset
}

// BurnResult reports a sale back to the curve. Split.Principal is what the seller received.
type BurnResult struct {
	Asset    common.Address
	TokensIn *uint256.Int
	Gross    *uint256.Int
	Split    fees.Breakdown
}

// SwapResult reports a curve-to-curve exchange.
type SwapResult struct {
	Burn       BurnResult
	MintSplit  fees.Breakdown // royalty-only split of Burn.Split.Principal
	TokensOut  *uint256.Int
	Graduation *Graduation
}

// Mint buys units of asset for paidValue. The value is split into protocol fee, creator
// royalty and principal; the principal buys along the curve and stays in the reserve.
func (m *Market) Mint(ctx context.Context, caller, asset common.Address, paidValue *uint256.Int) (*MintResult, error) {
	var res *MintResult
	err := m.run(ctx, "mint", asset, func(ctx context.Context, j *journal) error {
		pos, err := m.activePosition(asset)
		if err != nil {
			return err
		}
		if paidValue.IsZero() {
			return ErrZeroAmount
		}
		if err := m.moveValue(ctx, j, caller, m.address, paidValue); err != nil {
			return err
		}
		res, err = m.mint(ctx, j, caller, asset, pos, paidValue)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// mint assumes value is already in market custody.
func (m *Market) mint(ctx context.Context, j *journal, buyer, asset common.Address, pos *Position, value *uint256.Int) (*MintResult, error) {
	if value.IsZero() {
		return nil, ErrZeroAmount
	}
	split := fees.SplitInbound(value, m.settings.ExchangeFeePercent, pos.RoyaltyPercent)
	out, grad, err := m.buy(ctx, j, buyer, asset, pos, split)
	if err != nil {
		return nil, err
	}
	m.creditIncome(j, split.Fee)

	j.emit(&events.TradeEvent{
		BaseEvent: events.NewBase(events.TokensMinted),
		Token:     asset,
		Trader:    buyer,
		ValueIn:   cloneInt(value),
		TokensIn:  new(uint256.Int),
		TokensOut: cloneInt(out),
		ValueOut:  new(uint256.Int),
		Fee:       split.Fee,
		Royalty:   split.Royalty,
		Balance:   cloneInt(pos.Balance),
	})
	m.logger.Debug("Minted",
		zap.String("asset", asset.Hex()),
		zap.String("buyer", buyer.Hex()),
		zap.String("value", value.Dec()),
		zap.String("tokens_out", out.Dec()))

	return &MintResult{Asset: asset, Split: split, TokensOut: out, Graduation: grad}, nil
}

// buy spends split.Principal on the curve, credits the units to buyer, books principal and
// royalty on the position and then runs the graduation check. The protocol fee is left to
// the caller.
func (m *Market) buy(ctx context.Context, j *journal, buyer, asset common.Address, pos *Position, split fees.Breakdown) (*uint256.Int, *Graduation, error) {
	out, err := curve.BuyAmountOut(split.Principal, m.unsold(asset), pos.MaxSupply, pos.Curve)
	if err != nil {
		return nil, nil, err
	}
	if out.IsZero() {
		return nil, nil, fmt.Errorf("%w: %s does not buy a single unit", ErrZeroAmount, split.Principal.Dec())
	}
	if err := m.transferTokens(j, asset, m.address, buyer, out); err != nil {
		return nil, nil, err
	}

	j.savePosition(pos)
	pos.Balance = new(uint256.Int).Add(pos.Balance, split.Principal)
	pos.Royalty = new(uint256.Int).Add(pos.Royalty, split.Royalty)

	grad, err := m.maybeGraduate(ctx, j, asset, pos)
	if err != nil {
		return nil, nil, err
	}
	return out, grad, nil
}

// Burn sells amountIn units of asset back to the curve. The caller must have approved the
// market for amountIn. The position is settled before the principal is paid out.
func (m *Market) Burn(ctx context.Context, caller, asset common.Address, amountIn *uint256.Int) (*BurnResult, error) {
	var res *BurnResult
	err := m.run(ctx, "burn", asset, func(ctx context.Context, j *journal) error {
		pos, err := m.activePosition(asset)
		if err != nil {
			return err
		}
		res, err = m.burn(j, caller, asset, pos, amountIn)
		if err != nil {
			return err
		}
		return m.moveValue(ctx, j, m.address, caller, res.Split.Principal)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Market) burn(j *journal, seller, asset common.Address, pos *Position, amountIn *uint256.Int) (*BurnResult, error) {
	if amountIn.IsZero() {
		return nil, ErrZeroAmount
	}
	gross, err := curve.SellValueOut(amountIn, m.unsold(asset), pos.MaxSupply, pos.Curve)
	if err != nil {
		return nil, err
	}
	if gross.Gt(pos.Balance) {
		return nil, fmt.Errorf("%w: sale is worth %s, reserve holds %s", ErrInsufficientReserve, gross.Dec(), pos.Balance.Dec())
	}
	if err := m.pullTokens(j, asset, seller, amountIn); err != nil {
		return nil, err
	}

	split := fees.SplitOutbound(gross, m.settings.ExchangeFeePercent, pos.RoyaltyPercent)
	j.savePosition(pos)
	pos.Balance = new(uint256.Int).Sub(pos.Balance, gross)
	pos.Royalty = new(uint256.Int).Add(pos.Royalty, split.Royalty)
	m.creditIncome(j, split.Fee)

	j.emit(&events.TradeEvent{
		BaseEvent: events.NewBase(events.TokensBurned),
		Token:     asset,
		Trader:    seller,
		ValueIn:   cloneInt(gross),
		TokensIn:  cloneInt(amountIn),
		TokensOut: new(uint256.Int),
		ValueOut:  split.Principal,
		Fee:       split.Fee,
		Royalty:   split.Royalty,
		Balance:   cloneInt(pos.Balance),
	})
	m.logger.Debug("Burned",
		zap.String("asset", asset.Hex()),
		zap.String("seller", seller.Hex()),
		zap.String("tokens_in", amountIn.Dec()),
		zap.String("gross", gross.Dec()))

	return &BurnResult{Asset: asset, TokensIn: cloneInt(amountIn), Gross: gross, Split: split}, nil
}

// Swap sells amountIn units of from and buys to with the proceeds without the value leaving
// custody. The protocol fee is charged once, on the sell leg; the buy leg only pays the
// royalty of to.
func (m *Market) Swap(ctx context.Context, caller, from, to common.Address, amountIn *uint256.Int) (*SwapResult, error) {
	var res *SwapResult
	err := m.run(ctx, "swap", to, func(ctx context.Context, j *journal) error {
		if from == to {
			return fmt.Errorf("%w: cannot swap %s into itself", ErrInvalidParams, from.Hex())
		}
		fromPos, err := m.activePosition(from)
		if err != nil {
			return err
		}
		toPos, err := m.activePosition(to)
		if err != nil {
			return err
		}

		burned, err := m.burn(j, caller, from, fromPos, amountIn)
		if err != nil {
			return err
		}
		split := fees.SplitRoyaltyOnly(burned.Split.Principal, toPos.RoyaltyPercent)
		out, grad, err := m.buy(ctx, j, caller, to, toPos, split)
		if err != nil {
			return err
		}

		j.emit(&events.TradeEvent{
			BaseEvent: events.NewBase(events.TokensMinted),
			Token:     to,
			Trader:    caller,
			ValueIn:   cloneInt(burned.Split.Principal),
			TokensIn:  new(uint256.Int),
			TokensOut: cloneInt(out),
			ValueOut:  new(uint256.Int),
			Fee:       split.Fee,
			Royalty:   split.Royalty,
			Balance:   cloneInt(toPos.Balance),
		})
		j.emit(&events.SwapEvent{
			BaseEvent: events.NewBase(events.TokensSwapped),
			From:      from,
			To:        to,
			Trader:    caller,
			AmountIn:  cloneInt(amountIn),
			AmountOut: cloneInt(out),
			Principal: cloneInt(burned.Split.Principal),
		})

		res = &SwapResult{Burn: *burned, MintSplit: split, TokensOut: out, Graduation: grad}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
