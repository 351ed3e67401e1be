// =============================
// File: internal/amm/amm.go
// =============================

// Package amm implements the constant-product market that graduated assets move into.
package amm

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/fees"
)

var (
	ErrAlreadySeeded = errors.New("liquidity already seeded")
	ErrPoolNotFound  = errors.New("pool not found")
	ErrZeroAmount    = errors.New("zero amount")
	ErrEmptyPool     = errors.New("empty pool")
)

// SwapOut is the constant-product output formula:
//
//	out = floor(amountIn * reserveOut / (reserveIn + amountIn))
//
// Any fee must already be deducted from amountIn.
func SwapOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	denominator, overflow := new(uint256.Int).AddOverflow(reserveIn, amountIn)
	if overflow {
		return nil, fmt.Errorf("swap denominator overflows")
	}
	if denominator.IsZero() {
		return nil, ErrEmptyPool
	}
	out, overflow := new(uint256.Int).MulDivOverflow(amountIn, reserveOut, denominator)
	if overflow {
		return nil, fmt.Errorf("swap output overflows")
	}
	return out, nil
}

// Reserves is the state of one pool.
type Reserves struct {
	Token  *uint256.Int
	Native *uint256.Int
}

func (r Reserves) clone() Reserves {
	return Reserves{Token: new(uint256.Int).Set(r.Token), Native: new(uint256.Int).Set(r.Native)}
}

// Pool is the liquidity ledger of the destination market, keyed by asset.
type Pool struct {
	mu       sync.RWMutex
	reserves map[common.Address]*Reserves
	feePct   uint64
	logger   *zap.Logger
}

// NewPool creates an empty ledger. feePct is the pool fee in parts-per-100000 taken from
// every input before the swap formula is applied.
func NewPool(logger *zap.Logger, feePct uint64) (*Pool, error) {
	if err := fees.ValidatePercent(feePct); err != nil {
		return nil, fmt.Errorf("invalid pool fee: %w", err)
	}
	return &Pool{
		reserves: make(map[common.Address]*Reserves),
		feePct:   feePct,
		logger:   logger.Named("amm"),
	}, nil
}

// SeedLiquidity records the initial reserves for asset. It can be called once per asset.
func (p *Pool) SeedLiquidity(asset common.Address, tokenAmount, nativeAmount *uint256.Int) error {
	if tokenAmount.IsZero() || nativeAmount.IsZero() {
		return fmt.Errorf("%w: seeding %s requires both sides", ErrZeroAmount, asset.Hex())
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.reserves[asset]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadySeeded, asset.Hex())
	}
	p.reserves[asset] = &Reserves{
		Token:  new(uint256.Int).Set(tokenAmount),
		Native: new(uint256.Int).Set(nativeAmount),
	}

	p.logger.Info("Liquidity seeded",
		zap.String("asset", asset.Hex()),
		zap.String("token_reserve", tokenAmount.Dec()),
		zap.String("native_reserve", nativeAmount.Dec()))
	return nil
}

// Reserves returns a copy of the reserves of asset.
func (p *Pool) Reserves(asset common.Address) (Reserves, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, ok := p.reserves[asset]
	if !ok {
		return Reserves{}, fmt.Errorf("%w: %s", ErrPoolNotFound, asset.Hex())
	}
	return r.clone(), nil
}

// Assets lists seeded assets in address order.
func (p *Pool) Assets() []common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]common.Address, 0, len(p.reserves))
	for a := range p.reserves {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

func (p *Pool) afterFee(amountIn *uint256.Int) *uint256.Int {
	return fees.SplitInbound(amountIn, p.feePct, 0).Principal
}

func (p *Pool) quote(r *Reserves, amountIn *uint256.Int, buy bool) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return nil, ErrZeroAmount
	}
	if buy {
		return SwapOut(p.afterFee(amountIn), r.Native, r.Token)
	}
	return SwapOut(p.afterFee(amountIn), r.Token, r.Native)
}

// QuoteBuy previews how many tokens nativeIn buys.
func (p *Pool) QuoteBuy(asset common.Address, nativeIn *uint256.Int) (*uint256.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, ok := p.reserves[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, asset.Hex())
	}
	return p.quote(r, nativeIn, true)
}

// QuoteSell previews how much native value tokensIn returns.
func (p *Pool) QuoteSell(asset common.Address, tokensIn *uint256.Int) (*uint256.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, ok := p.reserves[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, asset.Hex())
	}
	return p.quote(r, tokensIn, false)
}

// Buy swaps nativeIn for tokens and updates the reserves.
func (p *Pool) Buy(asset common.Address, nativeIn *uint256.Int) (*uint256.Int, error) {
	return p.swap(asset, nativeIn, true)
}

// Sell swaps tokensIn for native value and updates the reserves.
func (p *Pool) Sell(asset common.Address, tokensIn *uint256.Int) (*uint256.Int, error) {
	return p.swap(asset, tokensIn, false)
}

func (p *Pool) swap(asset common.Address, amountIn *uint256.Int, buy bool) (*uint256.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.reserves[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, asset.Hex())
	}
	out, err := p.quote(r, amountIn, buy)
	if err != nil {
		return nil, err
	}
	if out.IsZero() {
		return nil, fmt.Errorf("%w: input %s is too small", ErrZeroAmount, amountIn.Dec())
	}

	// the full input (fee included) stays in the pool, so k never decreases
	if buy {
		r.Native.Add(r.Native, amountIn)
		r.Token.Sub(r.Token, out)
	} else {
		r.Token.Add(r.Token, amountIn)
		r.Native.Sub(r.Native, out)
	}

	p.logger.Debug("Pool swap",
		zap.String("asset", asset.Hex()),
		zap.Bool("buy", buy),
		zap.String("amount_in", amountIn.Dec()),
		zap.String("amount_out", out.Dec()),
		zap.String("token_reserve", r.Token.Dec()),
		zap.String("native_reserve", r.Native.Dec()))
	return out, nil
}
