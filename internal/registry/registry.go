// internal/registry/registry.go
package registry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRegistered = errors.New("asset already registered")
	ErrNotFound          = errors.New("asset not found")
	ErrIndexOutOfRange   = errors.New("index out of range")
)

// Registry is the insertion-ordered catalog of assets managed by the market.
// Indices are assigned on Append and never reused.
type Registry[T any] struct {
	mu      sync.RWMutex
	order   []common.Address
	records map[common.Address]*T
	logger  *zap.Logger
}

// New creates an empty registry.
func New[T any](logger *zap.Logger) *Registry[T] {
	return &Registry[T]{
		records: make(map[common.Address]*T),
		logger:  logger.Named("registry"),
	}
}

// Append registers record under addr and returns its index.
func (r *Registry[T]) Append(addr common.Address, record *T) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[addr]; exists {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyRegistered, addr.Hex())
	}
	r.order = append(r.order, addr)
	r.records[addr] = record

	index := len(r.order) - 1
	r.logger.Debug("Asset registered",
		zap.Int("index", index),
		zap.String("asset", addr.Hex()))
	return index, nil
}

// Pop removes addr if it is the most recent entry. It only serves to roll back an
// Append made by an operation that failed before completing.
func (r *Registry[T]) Pop(addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.order)
	if n == 0 || r.order[n-1] != addr {
		return fmt.Errorf("%w: %s is not the last entry", ErrNotFound, addr.Hex())
	}
	r.order = r.order[:n-1]
	delete(r.records, addr)
	return nil
}

// Get returns the record registered under addr.
func (r *Registry[T]) Get(addr common.Address) (*T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[addr]
	return rec, ok
}

// At returns the asset address stored at index i.
func (r *Registry[T]) At(i int) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i < 0 || i >= len(r.order) {
		return common.Address{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(r.order))
	}
	return r.order[i], nil
}

// Len returns the number of registered assets.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// List returns all asset addresses in registration order.
func (r *Registry[T]) List() []common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]common.Address, len(r.order))
	copy(out, r.order)
	return out
}

// DeriveAddress returns the address of the index-th asset created by market:
// the last 20 bytes of keccak256(market || index).
func DeriveAddress(market common.Address, index uint64) common.Address {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	return common.BytesToAddress(crypto.Keccak256(market.Bytes(), idx[:]))
}
