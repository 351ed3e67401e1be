// internal/bank/bank.go

// Package bank keeps native-value balances for every participant of the market.
package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrInsufficientBalance is returned when an account cannot cover a transfer.
var ErrInsufficientBalance = errors.New("insufficient native balance")

// Bank is an in-memory native-value ledger.
type Bank struct {
	mu       sync.RWMutex
	accounts map[common.Address]*uint256.Int
}

// New creates an empty bank.
func New() *Bank {
	return &Bank{accounts: make(map[common.Address]*uint256.Int)}
}

// Deposit credits new value to addr (faucet for tests and simulations).
func (b *Bank) Deposit(addr common.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.account(addr).Add(b.account(addr), amount)
}

func (b *Bank) account(addr common.Address) *uint256.Int {
	if a, ok := b.accounts[addr]; ok {
		return a
	}
	a := new(uint256.Int)
	b.accounts[addr] = a
	return a
}

// BalanceOf returns the native balance of addr.
func (b *Bank) BalanceOf(addr common.Address) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if a, ok := b.accounts[addr]; ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

// Transfer moves amount from one account to another. A cancelled context rejects the
// transfer before any balance changes.
func (b *Bank) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.account(from)
	if src.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), src.Dec(), amount.Dec())
	}
	src.Sub(src, amount)
	dst := b.account(to)
	dst.Add(dst, amount)
	return nil
}
