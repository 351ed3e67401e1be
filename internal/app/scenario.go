// internal/app/scenario.go
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/amm"
	"github.com/rovshanmuradov/launchpad/internal/market"
)

// Scenario is a scripted launch: create an asset, buy into it, sell part of the first
// position and keep buying until the asset graduates or the buys run out.
type Scenario struct {
	Creator     common.Address
	Traders     []common.Address // buys rotate over traders; derived when empty
	Params      market.CreateParams
	Presale     *uint256.Int   // value paid on creation on top of the fee
	Buys        []*uint256.Int // value paid per buy
	SellPercent uint64         // share of the first buyer's tokens sold after the first buy
	Funding     *uint256.Int   // deposited into every actor's account before the run
}

// Step actions.
const (
	ActionCreate = "create"
	ActionBuy    = "buy"
	ActionSell   = "sell"
)

// StepReport describes one executed step.
type StepReport struct {
	Action    string
	Actor     common.Address
	ValueIn   *uint256.Int
	TokensIn  *uint256.Int
	TokensOut *uint256.Int
	ValueOut  *uint256.Int
	Balance   *uint256.Int // asset reserve after the step
	Graduated bool
}

// Report is the outcome of a scenario run.
type Report struct {
	Asset           common.Address
	Steps           []StepReport
	Skipped         int // buys not executed because the asset had graduated
	Graduation      *market.Graduation
	Reserves        *amm.Reserves
	Position        market.Position
	InternalBalance *uint256.Int
}

// TraderAddress returns the deterministic address of the i-th simulated trader.
func TraderAddress(i int) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(fmt.Sprintf("launchpad/simulate/trader/%d", i))))
}

// DefaultScenario mirrors a typical launch: a five-step curve over 1000 units, a 10%
// royalty and buys large enough to cross the default graduation threshold.
func DefaultScenario(creator common.Address) Scenario {
	unit := uint256.NewInt(1_000_000_000_000_000_000)
	units := func(v uint64) *uint256.Int { return new(uint256.Int).Mul(uint256.NewInt(v), unit) }

	curve := make([]*uint256.Int, 5)
	for i := range curve {
		curve[i] = uint256.NewInt(uint64(i + 1))
	}
	return Scenario{
		Creator: creator,
		Params: market.CreateParams{
			Name:           "Rodeo",
			Symbol:         "RDO",
			MaxSupply:      units(1000),
			RoyaltyPercent: 10_000,
			Curve:          curve,
			Metadata:       "ipfs://rodeo",
		},
		Buys:        []*uint256.Int{units(1), units(5), units(10), units(60)},
		SellPercent: 50,
		Funding:     units(1_000_000),
	}
}

func (s *Scenario) validate() error {
	if s.SellPercent > 100 {
		return errors.New("sell percent above 100")
	}
	if s.Funding == nil {
		return errors.New("scenario funding is not set")
	}
	return nil
}

func (s *Scenario) trader(i int) common.Address {
	if len(s.Traders) == 0 {
		return TraderAddress(i)
	}
	return s.Traders[i%len(s.Traders)]
}

// Simulate runs sc against the app's market. Any rejected step aborts the run.
func (a *App) Simulate(ctx context.Context, sc Scenario) (*Report, error) {
	if err := sc.validate(); err != nil {
		return nil, err
	}
	defer a.logger.TrackPerformance("simulate")()

	a.Bank.Deposit(sc.Creator, sc.Funding)
	for i := range sc.Buys {
		a.Bank.Deposit(sc.trader(i), sc.Funding)
	}

	paid := new(uint256.Int).Set(a.Market.Settings().CreateFee)
	if sc.Presale != nil {
		paid.Add(paid, sc.Presale)
	}
	created, err := a.Market.CreateAsset(ctx, sc.Creator, sc.Params, paid)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	asset := created.Asset
	a.logger.WithAsset(asset).Info("Launch started",
		zap.Int("index", created.Index),
		zap.String("paid", paid.Dec()))

	r := &Report{Asset: asset}
	step := StepReport{Action: ActionCreate, Actor: sc.Creator, ValueIn: paid, TokensOut: new(uint256.Int)}
	if created.Presale != nil {
		step.TokensOut = created.Presale.TokensOut
		r.Graduation = created.Presale.Graduation
	}
	r.Steps = append(r.Steps, a.withPosition(asset, step))

	for i, value := range sc.Buys {
		if r.Graduation != nil {
			r.Skipped = len(sc.Buys) - i
			break
		}
		buyer := sc.trader(i)
		res, err := a.Market.Mint(ctx, buyer, asset, value)
		if err != nil {
			return nil, fmt.Errorf("buy %d: %w", i, err)
		}
		r.Graduation = res.Graduation
		a.logger.WithAccount(buyer).Debug("Buy filled",
			zap.String("asset", asset.Hex()),
			zap.String("tokens_out", res.TokensOut.Dec()),
			zap.Bool("graduated", res.Graduation != nil))
		r.Steps = append(r.Steps, a.withPosition(asset, StepReport{
			Action:    ActionBuy,
			Actor:     buyer,
			ValueIn:   value,
			TokensOut: res.TokensOut,
		}))

		if i == 0 && sc.SellPercent > 0 && r.Graduation == nil {
			sell, err := a.sell(ctx, buyer, asset, res.TokensOut, sc.SellPercent)
			if err != nil {
				return nil, fmt.Errorf("sell: %w", err)
			}
			if sell != nil {
				r.Steps = append(r.Steps, a.withPosition(asset, *sell))
			}
		}
	}

	pos, err := a.Market.Position(asset)
	if err != nil {
		return nil, err
	}
	r.Position = pos
	r.InternalBalance = a.Market.InternalBalance()
	if pos.Graduated {
		reserves, err := a.Pool.Reserves(asset)
		if err != nil {
			return nil, err
		}
		r.Reserves = &reserves
	}
	a.logger.WithAsset(asset).Info("Launch finished",
		zap.Int("steps", len(r.Steps)),
		zap.Bool("graduated", pos.Graduated),
		zap.Int("skipped", r.Skipped))
	return r, nil
}

func (a *App) sell(ctx context.Context, seller, asset common.Address, held *uint256.Int, pct uint64) (*StepReport, error) {
	amount := new(uint256.Int).Mul(held, uint256.NewInt(pct))
	amount.Div(amount, uint256.NewInt(100))
	if amount.IsZero() {
		return nil, nil
	}
	if err := a.Ledger.Approve(asset, seller, a.Market.Address(), amount); err != nil {
		return nil, err
	}
	res, err := a.Market.Burn(ctx, seller, asset, amount)
	if err != nil {
		return nil, err
	}
	return &StepReport{
		Action:   ActionSell,
		Actor:    seller,
		TokensIn: amount,
		ValueOut: res.Split.Principal,
	}, nil
}

func (a *App) withPosition(asset common.Address, s StepReport) StepReport {
	pos, err := a.Market.Position(asset)
	if err != nil {
		return s
	}
	s.Balance = pos.Balance
	s.Graduated = pos.Graduated
	return s
}
