// internal/token/ledger.go

// Package token is an in-memory fungible-asset ledger with ERC-20 style allowances.
// The market only talks to it through its own TokenLedger interface.
package token

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrUnknownToken          = errors.New("unknown token")
	ErrTokenExists           = errors.New("token already deployed")
	ErrInsufficientBalance   = errors.New("insufficient token balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Info describes a deployed token.
type Info struct {
	Address     common.Address
	Name        string
	Symbol      string
	Template    string
	TotalSupply *uint256.Int
}

type instance struct {
	info       Info
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
}

// Ledger holds every token instance created by the market.
type Ledger struct {
	mu     sync.RWMutex
	tokens map[common.Address]*instance
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{tokens: make(map[common.Address]*instance)}
}

// Deploy creates a token at addr and credits the whole supply to owner.
func (l *Ledger) Deploy(addr common.Address, name, symbol, template string, supply *uint256.Int, owner common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.tokens[addr]; exists {
		return fmt.Errorf("%w: %s", ErrTokenExists, addr.Hex())
	}
	l.tokens[addr] = &instance{
		info: Info{
			Address:     addr,
			Name:        name,
			Symbol:      symbol,
			Template:    template,
			TotalSupply: new(uint256.Int).Set(supply),
		},
		balances:   map[common.Address]*uint256.Int{owner: new(uint256.Int).Set(supply)},
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
	return nil
}

// Remove drops a deployed token. It exists so a failed creation can be undone.
func (l *Ledger) Remove(addr common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tokens, addr)
}

// Info returns token metadata.
func (l *Ledger) Info(addr common.Address) (Info, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.tokens[addr]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownToken, addr.Hex())
	}
	info := t.info
	info.TotalSupply = new(uint256.Int).Set(t.info.TotalSupply)
	return info, nil
}

func (l *Ledger) get(addr common.Address) (*instance, error) {
	t, ok := l.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr.Hex())
	}
	return t, nil
}

func (t *instance) balance(holder common.Address) *uint256.Int {
	if b, ok := t.balances[holder]; ok {
		return b
	}
	b := new(uint256.Int)
	t.balances[holder] = b
	return b
}

func (t *instance) move(from, to common.Address, amount *uint256.Int) error {
	src := t.balance(from)
	if src.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from.Hex(), src.Dec(), amount.Dec())
	}
	src.Sub(src, amount)
	dst := t.balance(to)
	dst.Add(dst, amount)
	return nil
}

// BalanceOf returns the balance of holder; unknown tokens report zero.
func (l *Ledger) BalanceOf(addr, holder common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.tokens[addr]
	if !ok {
		return new(uint256.Int)
	}
	if b, ok := t.balances[holder]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

// TotalSupply returns the current supply of addr.
func (l *Ledger) TotalSupply(addr common.Address) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, err := l.get(addr)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(t.info.TotalSupply), nil
}

// MintTo creates amount new units for holder.
func (l *Ledger) MintTo(addr, holder common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(addr)
	if err != nil {
		return err
	}
	b := t.balance(holder)
	b.Add(b, amount)
	t.info.TotalSupply.Add(t.info.TotalSupply, amount)
	return nil
}

// BurnFrom destroys amount units held by holder.
func (l *Ledger) BurnFrom(addr, holder common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(addr)
	if err != nil {
		return err
	}
	b := t.balance(holder)
	if b.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, burning %s", ErrInsufficientBalance, holder.Hex(), b.Dec(), amount.Dec())
	}
	b.Sub(b, amount)
	t.info.TotalSupply.Sub(t.info.TotalSupply, amount)
	return nil
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(addr, from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(addr)
	if err != nil {
		return err
	}
	return t.move(from, to, amount)
}

// Approve sets the allowance spender may move out of owner's balance.
func (l *Ledger) Approve(addr, owner, spender common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(addr)
	if err != nil {
		return err
	}
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	t.allowances[owner][spender] = new(uint256.Int).Set(amount)
	return nil
}

// Allowance returns what spender may still move out of owner's balance.
func (l *Ledger) Allowance(addr, owner, spender common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	t, ok := l.tokens[addr]
	if !ok {
		return new(uint256.Int)
	}
	if a, ok := t.allowances[owner][spender]; ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

// TransferFrom moves amount from owner to `to` on behalf of spender, spending allowance.
func (l *Ledger) TransferFrom(addr, spender, owner, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.get(addr)
	if err != nil {
		return err
	}
	allowed := t.allowances[owner][spender]
	if allowed == nil || allowed.Lt(amount) {
		have := "0"
		if allowed != nil {
			have = allowed.Dec()
		}
		return fmt.Errorf("%w: %s approved %s for %s, needs %s", ErrInsufficientAllowance, owner.Hex(), spender.Hex(), have, amount.Dec())
	}
	if err := t.move(owner, to, amount); err != nil {
		return err
	}
	allowed.Sub(allowed, amount)
	return nil
}
