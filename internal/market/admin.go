// internal/market/admin.go
package market

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
)

// TransferIncome pays amount of the accumulated protocol revenue to to.
func (m *Market) TransferIncome(ctx context.Context, caller, to common.Address, amount *uint256.Int) error {
	return m.run(ctx, "transfer_income", common.Address{}, func(ctx context.Context, j *journal) error {
		if err := m.requireAdmin(caller); err != nil {
			return err
		}
		if amount.IsZero() {
			return ErrZeroAmount
		}
		if amount.Gt(m.internalBalance) {
			return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientFunds, amount.Dec(), m.internalBalance.Dec())
		}

		prev := m.internalBalance
		j.record(func() error {
			m.internalBalance = prev
			return nil
		})
		m.internalBalance = new(uint256.Int).Sub(prev, amount)
		if err := m.moveValue(ctx, j, m.address, to, amount); err != nil {
			return err
		}

		j.emit(&events.WithdrawalEvent{
			BaseEvent: events.NewBase(events.IncomeWithdrawn),
			To:        to,
			Amount:    cloneInt(amount),
		})
		m.logger.Info("Income withdrawn", zap.String("to", to.Hex()), zap.String("amount", amount.Dec()))
		return nil
	})
}

// TransferRoyalty pays amount of the royalty accrued on asset to to. The creator can only
// withdraw once the asset has graduated; an administrator can withdraw at any time.
func (m *Market) TransferRoyalty(ctx context.Context, caller, asset, to common.Address, amount *uint256.Int) error {
	return m.run(ctx, "transfer_royalty", asset, func(ctx context.Context, j *journal) error {
		pos, err := m.position(asset)
		if err != nil {
			return err
		}
		admin := m.auth.IsAdmin(caller)
		if !admin && caller != pos.Creator {
			return fmt.Errorf("%w: %s is neither creator nor administrator", ErrUnauthorized, caller.Hex())
		}
		if !admin && pos.RoyaltyLock {
			return ErrRoyaltyLocked
		}
		if amount.IsZero() {
			return ErrZeroAmount
		}
		if amount.Gt(pos.Royalty) {
			return fmt.Errorf("%w: requested %s, accrued %s", ErrInsufficientFunds, amount.Dec(), pos.Royalty.Dec())
		}

		j.savePosition(pos)
		pos.Royalty = new(uint256.Int).Sub(pos.Royalty, amount)
		if err := m.moveValue(ctx, j, m.address, to, amount); err != nil {
			return err
		}

		j.emit(&events.WithdrawalEvent{
			BaseEvent: events.NewBase(events.RoyaltyWithdrawn),
			Token:     asset,
			To:        to,
			Amount:    cloneInt(amount),
		})
		m.logger.Info("Royalty withdrawn",
			zap.String("asset", asset.Hex()),
			zap.String("to", to.Hex()),
			zap.String("amount", amount.Dec()))
		return nil
	})
}

// ActivateToken re-enables curve trading of asset. Graduation state is left untouched.
func (m *Market) ActivateToken(ctx context.Context, caller, asset common.Address) error {
	return m.setActive(ctx, "activate", caller, asset, true)
}

// DeactivateToken suspends curve trading of asset.
func (m *Market) DeactivateToken(ctx context.Context, caller, asset common.Address) error {
	return m.setActive(ctx, "deactivate", caller, asset, false)
}

func (m *Market) setActive(ctx context.Context, op string, caller, asset common.Address, active bool) error {
	return m.run(ctx, op, asset, func(_ context.Context, j *journal) error {
		if err := m.requireAdmin(caller); err != nil {
			return err
		}
		pos, err := m.position(asset)
		if err != nil {
			return err
		}
		if pos.Active == active {
			return nil
		}
		j.savePosition(pos)
		pos.Active = active

		j.emit(&events.StatusChangedEvent{
			BaseEvent: events.NewBase(events.TokenStatusChanged),
			Token:     asset,
			Active:    active,
		})
		m.logger.Info("Token status changed", zap.String("asset", asset.Hex()), zap.Bool("active", active))
		return nil
	})
}

// SetSettings replaces the market settings.
func (m *Market) SetSettings(ctx context.Context, caller common.Address, s Settings) error {
	return m.run(ctx, "set_settings", common.Address{}, func(_ context.Context, j *journal) error {
		if err := m.requireAdmin(caller); err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return err
		}
		m.settings = s.clone()
		j.emit(&events.SettingsChangedEvent{
			BaseEvent: events.NewBase(events.SettingsChanged),
			Admin:     caller,
		})
		return nil
	})
}

// SetBalanceToDex changes the default graduation threshold. Zero disables graduation.
func (m *Market) SetBalanceToDex(ctx context.Context, caller common.Address, threshold *uint256.Int) error {
	return m.run(ctx, "set_balance_to_dex", common.Address{}, func(_ context.Context, j *journal) error {
		if err := m.requireAdmin(caller); err != nil {
			return err
		}
		if threshold == nil {
			return fmt.Errorf("%w: threshold is required", ErrInvalidParams)
		}
		m.settings.BalanceToDex = new(uint256.Int).Set(threshold)
		j.emit(&events.SettingsChangedEvent{
			BaseEvent: events.NewBase(events.SettingsChanged),
			Admin:     caller,
			Threshold: cloneInt(threshold),
		})
		return nil
	})
}

// SetAssetThreshold overrides the graduation threshold of one asset. A nil threshold
// restores the default.
func (m *Market) SetAssetThreshold(ctx context.Context, caller, asset common.Address, threshold *uint256.Int) error {
	return m.run(ctx, "set_asset_threshold", asset, func(_ context.Context, j *journal) error {
		if err := m.requireAdmin(caller); err != nil {
			return err
		}
		pos, err := m.position(asset)
		if err != nil {
			return err
		}
		j.savePosition(pos)
		pos.Threshold = cloneInt(threshold)
		j.emit(&events.SettingsChangedEvent{
			BaseEvent: events.NewBase(events.SettingsChanged),
			Admin:     caller,
			Asset:     asset,
			Threshold: cloneInt(threshold),
		})
		return nil
	})
}
