// internal/market/market.go

// Package market implements the bonding-curve launch market: asset creation, curve-priced
// mint/burn/swap with fee and royalty custody, and graduation of funded assets into the
// constant-product pool.
package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/fees"
	"github.com/rovshanmuradov/launchpad/internal/registry"
)

// Settings are the process-wide parameters an administrator can change.
type Settings struct {
	MaxCurveSteps      int
	CreationEnabled    bool
	TokenTemplate      string
	DexAddress         common.Address
	BalanceToDex       *uint256.Int // default graduation threshold, zero disables graduation
	CreateFee          *uint256.Int
	ExchangeFeePercent uint64 // parts-per-100000
}

// Validate checks the settings invariants.
func (s Settings) Validate() error {
	if s.MaxCurveSteps <= 0 {
		return fmt.Errorf("%w: max curve steps must be positive", ErrInvalidParams)
	}
	if s.BalanceToDex == nil || s.CreateFee == nil {
		return fmt.Errorf("%w: threshold and creation fee are required", ErrInvalidParams)
	}
	if err := fees.ValidatePercent(s.ExchangeFeePercent); err != nil {
		return fmt.Errorf("%w: exchange fee: %v", ErrInvalidParams, err)
	}
	return nil
}

func (s Settings) clone() Settings {
	out := s
	out.BalanceToDex = cloneInt(s.BalanceToDex)
	out.CreateFee = cloneInt(s.CreateFee)
	return out
}

// Position is the per-asset record the market keeps for its whole life.
type Position struct {
	Creator        common.Address
	Name           string
	Symbol         string
	Metadata       string
	MaxSupply      *uint256.Int
	Curve          []*uint256.Int
	RoyaltyPercent uint64

	Balance     *uint256.Int // raised reserve backing the curve
	Royalty     *uint256.Int // creator accrual
	RoyaltyLock bool
	Active      bool
	Graduated   bool
	Threshold   *uint256.Int // per-asset graduation override, nil uses Settings.BalanceToDex
	CreatedAt   time.Time
}

func (p *Position) clone() Position {
	out := *p
	out.MaxSupply = cloneInt(p.MaxSupply)
	out.Balance = cloneInt(p.Balance)
	out.Royalty = cloneInt(p.Royalty)
	out.Threshold = cloneInt(p.Threshold)
	out.Curve = make([]*uint256.Int, len(p.Curve))
	for i, price := range p.Curve {
		out.Curve[i] = cloneInt(price)
	}
	return out
}

func cloneInt(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return new(uint256.Int).Set(v)
}

// TokenLedger is the fungible-token ledger holding per-holder balances of every asset.
type TokenLedger interface {
	Deploy(asset common.Address, name, symbol, template string, supply *uint256.Int, owner common.Address) error
	// Remove undoes a Deploy of a creation that failed later on.
	Remove(asset common.Address)
	BalanceOf(asset, holder common.Address) *uint256.Int
	MintTo(asset, holder common.Address, amount *uint256.Int) error
	BurnFrom(asset, holder common.Address, amount *uint256.Int) error
	Transfer(asset, from, to common.Address, amount *uint256.Int) error
	TransferFrom(asset, spender, owner, to common.Address, amount *uint256.Int) error
	Allowance(asset, owner, spender common.Address) *uint256.Int
	Approve(asset, owner, spender common.Address, amount *uint256.Int) error
}

// Bank moves native value between accounts.
type Bank interface {
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	BalanceOf(addr common.Address) *uint256.Int
}

// LiquiditySeeder is the entry point of the destination pool.
type LiquiditySeeder interface {
	SeedLiquidity(asset common.Address, tokenAmount, nativeAmount *uint256.Int) error
}

// Authorizer answers the administrator role check.
type Authorizer interface {
	IsAdmin(addr common.Address) bool
}

// Publisher receives the events of committed operations.
type Publisher interface {
	Publish(event events.Event) error
}

// Observer records the outcome and latency of every entry point.
type Observer interface {
	ObserveOperation(op string, duration time.Duration, err error)
}

// Admins is a fixed set of administrator addresses.
type Admins map[common.Address]struct{}

// NewAdmins builds an Admins set.
func NewAdmins(addrs ...common.Address) Admins {
	a := make(Admins, len(addrs))
	for _, addr := range addrs {
		a[addr] = struct{}{}
	}
	return a
}

// IsAdmin implements Authorizer.
func (a Admins) IsAdmin(addr common.Address) bool {
	_, ok := a[addr]
	return ok
}

// Deps groups the collaborators of a Market. Publisher and Observer are optional.
type Deps struct {
	Ledger    TokenLedger
	Bank      Bank
	Dex       LiquiditySeeder
	Auth      Authorizer
	Publisher Publisher
	Observer  Observer
}

// Market is the bonding-curve orchestrator. Entry points are serialised; each one either
// commits all of its effects or none of them.
type Market struct {
	mu sync.Mutex

	address         common.Address
	settings        Settings
	internalBalance *uint256.Int
	assets          *registry.Registry[Position]

	ledger    TokenLedger
	bank      Bank
	dex       LiquiditySeeder
	auth      Authorizer
	publisher Publisher
	observer  Observer

	logger *zap.Logger
	now    func() time.Time
}

// New creates a market whose custody account is address.
func New(logger *zap.Logger, address common.Address, settings Settings, deps Deps) (*Market, error) {
	if deps.Ledger == nil || deps.Bank == nil || deps.Dex == nil || deps.Auth == nil {
		return nil, errors.New("market requires ledger, bank, dex and authorizer")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger = logger.Named("market")
	return &Market{
		address:         address,
		settings:        settings.clone(),
		internalBalance: new(uint256.Int),
		assets:          registry.New[Position](logger),
		ledger:          deps.Ledger,
		bank:            deps.Bank,
		dex:             deps.Dex,
		auth:            deps.Auth,
		publisher:       deps.Publisher,
		observer:        deps.Observer,
		logger:          logger,
		now:             time.Now,
	}, nil
}

type callKey struct{}

// run executes fn as one atomic entry point. A context that already belongs to a call on
// this market is rejected instead of waiting for the lock it holds.
func (m *Market) run(ctx context.Context, op string, asset common.Address, fn func(context.Context, *journal) error) error {
	start := time.Now()
	if owner, _ := ctx.Value(callKey{}).(*Market); owner == m {
		return m.finish(op, asset, start, nil, ErrReentrant)
	}
	if err := ctx.Err(); err != nil {
		return m.finish(op, asset, start, nil, err)
	}

	m.mu.Lock()
	j := &journal{}
	err := fn(context.WithValue(ctx, callKey{}, m), j)
	if err != nil {
		j.rollback(m.logger)
	}
	committed := j.events
	m.mu.Unlock()

	return m.finish(op, asset, start, committed, err)
}

// finish publishes committed events outside the lock so handlers may call back in.
func (m *Market) finish(op string, asset common.Address, start time.Time, committed []events.Event, err error) error {
	if m.observer != nil {
		m.observer.ObserveOperation(op, time.Since(start), err)
	}
	if err != nil {
		m.logger.Warn("Operation rejected",
			zap.String("op", op),
			zap.String("asset", asset.Hex()),
			zap.Error(err))
		return wrap(op, asset, err)
	}
	if m.publisher != nil {
		for _, e := range committed {
			if perr := m.publisher.Publish(e); perr != nil {
				m.logger.Warn("Failed to publish event",
					zap.String("event_type", string(e.Type())),
					zap.Error(perr))
			}
		}
	}
	return nil
}

func (m *Market) requireAdmin(caller common.Address) error {
	if !m.auth.IsAdmin(caller) {
		return fmt.Errorf("%w: %s is not an administrator", ErrUnauthorized, caller.Hex())
	}
	return nil
}

func (m *Market) position(asset common.Address) (*Position, error) {
	pos, ok := m.assets.Get(asset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, asset.Hex())
	}
	return pos, nil
}

// activePosition treats unknown and inactive assets alike.
func (m *Market) activePosition(asset common.Address) (*Position, error) {
	pos, ok := m.assets.Get(asset)
	if !ok || !pos.Active {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotActive, asset.Hex())
	}
	return pos, nil
}

func (m *Market) unsold(asset common.Address) *uint256.Int {
	return m.ledger.BalanceOf(asset, m.address)
}

func (m *Market) creditIncome(j *journal, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	prev := new(uint256.Int).Set(m.internalBalance)
	j.record(func() error {
		m.internalBalance = prev
		return nil
	})
	m.internalBalance = new(uint256.Int).Add(m.internalBalance, amount)
}

// Collaborator calls below register their compensation in the journal after succeeding.

func (m *Market) moveValue(ctx context.Context, j *journal, from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := m.bank.Transfer(ctx, from, to, amount); err != nil {
		return fmt.Errorf("failed to transfer value: %w", err)
	}
	undoCtx := context.WithoutCancel(ctx)
	j.record(func() error {
		return m.bank.Transfer(undoCtx, to, from, amount)
	})
	return nil
}

func (m *Market) transferTokens(j *journal, asset, from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := m.ledger.Transfer(asset, from, to, amount); err != nil {
		return fmt.Errorf("failed to transfer tokens: %w", err)
	}
	j.record(func() error {
		return m.ledger.Transfer(asset, to, from, amount)
	})
	return nil
}

// pullTokens moves amount from owner to the market using the allowance owner granted it.
func (m *Market) pullTokens(j *journal, asset, owner common.Address, amount *uint256.Int) error {
	allowance := m.ledger.Allowance(asset, owner, m.address)
	if err := m.ledger.TransferFrom(asset, m.address, owner, m.address, amount); err != nil {
		return fmt.Errorf("failed to pull tokens: %w", err)
	}
	j.record(func() error {
		if err := m.ledger.Transfer(asset, m.address, owner, amount); err != nil {
			return err
		}
		return m.ledger.Approve(asset, owner, m.address, allowance)
	})
	return nil
}

func (m *Market) mintTokens(j *journal, asset, to common.Address, amount *uint256.Int) error {
	if err := m.ledger.MintTo(asset, to, amount); err != nil {
		return fmt.Errorf("failed to mint tokens: %w", err)
	}
	j.record(func() error {
		return m.ledger.BurnFrom(asset, to, amount)
	})
	return nil
}

func (m *Market) burnTokens(j *journal, asset, from common.Address, amount *uint256.Int) error {
	if err := m.ledger.BurnFrom(asset, from, amount); err != nil {
		return fmt.Errorf("failed to burn tokens: %w", err)
	}
	j.record(func() error {
		return m.ledger.MintTo(asset, from, amount)
	})
	return nil
}
