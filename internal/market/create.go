// internal/market/create.go
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
	"github.com/rovshanmuradov/launchpad/internal/registry"
)

// CreateParams describes a new asset.
type CreateParams struct {
	Name           string
	Symbol         string
	MaxSupply      *uint256.Int
	RoyaltyPercent uint64 // parts-per-100000
	Curve          []*uint256.Int
	Metadata       string // image or metadata URI
}

// CreateResult reports a successful creation.
type CreateResult struct {
	Asset   common.Address
	Index   int
	Presale *MintResult // nil when exactly the creation fee was paid
}

func (m *Market) validateParams(p CreateParams) error {
	if p.Name == "" || p.Symbol == "" {
		return fmt.Errorf("%w: name and symbol are required", ErrInvalidParams)
	}
	if p.MaxSupply == nil {
		return fmt.Errorf("%w: max supply is required", ErrInvalidParams)
	}
	if err := curve.Validate(p.Curve, p.MaxSupply, m.settings.MaxCurveSteps); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if err := fees.ValidatePercent(p.RoyaltyPercent); err != nil {
		return fmt.Errorf("%w: royalty: %v", ErrInvalidParams, err)
	}
	return nil
}

// CreateAsset deploys a new asset with its whole supply held by the market and registers its
// position. paidValue must cover Settings.CreateFee; anything above it buys the first units
// of the curve for caller through the regular mint path.
func (m *Market) CreateAsset(ctx context.Context, caller common.Address, params CreateParams, paidValue *uint256.Int) (*CreateResult, error) {
	var res *CreateResult
	err := m.run(ctx, "create", common.Address{}, func(ctx context.Context, j *journal) error {
		if !m.settings.CreationEnabled && !m.auth.IsAdmin(caller) {
			return fmt.Errorf("%w: asset creation is disabled", ErrUnauthorized)
		}
		if err := m.validateParams(params); err != nil {
			return err
		}
		if paidValue.Lt(m.settings.CreateFee) {
			return fmt.Errorf("%w: paid %s, fee is %s", ErrInsufficientFee, paidValue.Dec(), m.settings.CreateFee.Dec())
		}
		if err := m.moveValue(ctx, j, caller, m.address, paidValue); err != nil {
			return err
		}

		index := m.assets.Len()
		asset := registry.DeriveAddress(m.address, uint64(index))
		if err := m.ledger.Deploy(asset, params.Name, params.Symbol, m.settings.TokenTemplate, params.MaxSupply, m.address); err != nil {
			return fmt.Errorf("failed to deploy token: %w", err)
		}
		j.record(func() error {
			m.ledger.Remove(asset)
			return nil
		})

		prices := make([]*uint256.Int, len(params.Curve))
		for i, p := range params.Curve {
			prices[i] = new(uint256.Int).Set(p)
		}
		pos := &Position{
			Creator:        caller,
			Name:           params.Name,
			Symbol:         params.Symbol,
			Metadata:       params.Metadata,
			MaxSupply:      new(uint256.Int).Set(params.MaxSupply),
			Curve:          prices,
			RoyaltyPercent: params.RoyaltyPercent,
			Balance:        new(uint256.Int),
			Royalty:        new(uint256.Int),
			RoyaltyLock:    true,
			Active:         true,
			CreatedAt:      m.now().UTC(),
		}
		if _, err := m.assets.Append(asset, pos); err != nil {
			return fmt.Errorf("failed to register asset: %w", err)
		}
		j.record(func() error {
			return m.assets.Pop(asset)
		})
		m.creditIncome(j, m.settings.CreateFee)

		j.emit(&events.TokenCreatedEvent{
			BaseEvent: events.NewBase(events.TokenCreated),
			Index:     index,
			Token:     asset,
			Creator:   caller,
			Name:      params.Name,
			Symbol:    params.Symbol,
			MaxSupply: cloneInt(params.MaxSupply),
			Metadata:  params.Metadata,
		})
		res = &CreateResult{Asset: asset, Index: index}

		presale := new(uint256.Int).Sub(paidValue, m.settings.CreateFee)
		if !presale.IsZero() {
			mr, err := m.mint(ctx, j, caller, asset, pos, presale)
			if err != nil {
				return fmt.Errorf("presale failed: %w", err)
			}
			res.Presale = mr
		}

		m.logger.Info("Asset created",
			zap.Int("index", index),
			zap.String("asset", asset.Hex()),
			zap.String("symbol", params.Symbol),
			zap.String("creator", caller.Hex()),
			zap.String("presale", presale.Dec()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
