// internal/market/query.go
package market

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/fees"
)

// Queries take the market lock and must not be called from inside a collaborator.

// MintQuote previews a Mint.
type MintQuote struct {
	Split     fees.Breakdown
	TokensOut *uint256.Int
	Graduates bool
}

// BurnQuote previews a Burn.
type BurnQuote struct {
	Gross *uint256.Int
	Split fees.Breakdown
}

// Address returns the custody account of the market.
func (m *Market) Address() common.Address {
	return m.address
}

// Settings returns a copy of the current settings.
func (m *Market) Settings() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.clone()
}

// InternalBalance returns the protocol revenue held by the market.
func (m *Market) InternalBalance() *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(uint256.Int).Set(m.internalBalance)
}

// Position returns a copy of the position of asset.
func (m *Market) Position(asset common.Address) (Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.position(asset)
	if err != nil {
		return Position{}, err
	}
	return pos.clone(), nil
}

// TokensCount returns the number of assets ever created.
func (m *Market) TokensCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assets.Len()
}

// TokenAt returns the asset created at index i.
func (m *Market) TokenAt(i int) (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assets.At(i)
}

// Tokens returns every asset in creation order. A creation still in progress is not listed.
func (m *Market) Tokens() []common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assets.List()
}

// StepPrice returns the price of the next unit of asset.
func (m *Market) StepPrice(asset common.Address) (*uint256.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.position(asset)
	if err != nil {
		return nil, err
	}
	return curve.SpotPrice(m.unsold(asset), pos.MaxSupply, pos.Curve)
}

// Steps returns the segment layout of the curve of asset.
func (m *Market) Steps(asset common.Address) ([]curve.Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.position(asset)
	if err != nil {
		return nil, err
	}
	return curve.Steps(pos.MaxSupply, pos.Curve)
}

// QuoteMint previews what Mint(asset, value) would return without changing state.
func (m *Market) QuoteMint(asset common.Address, value *uint256.Int) (*MintQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.activePosition(asset)
	if err != nil {
		return nil, err
	}
	if value.IsZero() {
		return nil, ErrZeroAmount
	}
	split := fees.SplitInbound(value, m.settings.ExchangeFeePercent, pos.RoyaltyPercent)
	out, err := curve.BuyAmountOut(split.Principal, m.unsold(asset), pos.MaxSupply, pos.Curve)
	if err != nil {
		return nil, err
	}
	threshold := m.threshold(pos)
	balance := new(uint256.Int).Add(pos.Balance, split.Principal)
	return &MintQuote{
		Split:     split,
		TokensOut: out,
		Graduates: !threshold.IsZero() && !balance.Lt(threshold),
	}, nil
}

// QuoteBurn previews what Burn(asset, amount) would pay without changing state.
func (m *Market) QuoteBurn(asset common.Address, amount *uint256.Int) (*BurnQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.activePosition(asset)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, ErrZeroAmount
	}
	gross, err := curve.SellValueOut(amount, m.unsold(asset), pos.MaxSupply, pos.Curve)
	if err != nil {
		return nil, err
	}
	return &BurnQuote{
		Gross: gross,
		Split: fees.SplitOutbound(gross, m.settings.ExchangeFeePercent, pos.RoyaltyPercent),
	}, nil
}
