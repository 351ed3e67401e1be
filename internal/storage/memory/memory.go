// internal/storage/memory/memory.go

// Package memory keeps market history in process memory. It backs the recorder when no
// database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// Storage implements storage.Storage with maps and slices.
type Storage struct {
	mu          sync.RWMutex
	nextID      uint
	assets      map[string]*models.Asset
	trades      []*models.Trade
	graduations map[string]*models.Graduation
	withdrawals []*models.Withdrawal
	closed      bool
}

var _ storage.Storage = (*Storage)(nil)

// New returns an empty store.
func New() *Storage {
	return &Storage{
		assets:      make(map[string]*models.Asset),
		graduations: make(map[string]*models.Graduation),
	}
}

func (s *Storage) stamp(b *models.BaseModel) error {
	if s.closed {
		return fmt.Errorf("memory storage is closed")
	}
	s.nextID++
	now := time.Now().UTC()
	b.ID = s.nextID
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

func (s *Storage) SaveAsset(_ context.Context, asset *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[asset.Address]; ok {
		return fmt.Errorf("asset %s already stored", asset.Address)
	}
	if err := s.stamp(&asset.BaseModel); err != nil {
		return err
	}
	row := *asset
	s.assets[asset.Address] = &row
	return nil
}

func (s *Storage) GetAsset(_ context.Context, address common.Address) (*models.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.assets[address.Hex()]
	if !ok {
		return nil, storage.NotFound("asset", address.Hex())
	}
	out := *row
	return &out, nil
}

func (s *Storage) update(address common.Address, fn func(*models.Asset)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.assets[address.Hex()]
	if !ok {
		return storage.NotFound("asset", address.Hex())
	}
	fn(row)
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Storage) SetAssetActive(_ context.Context, address common.Address, active bool) error {
	return s.update(address, func(a *models.Asset) { a.Active = active })
}

func (s *Storage) MarkGraduated(_ context.Context, address common.Address, at time.Time) error {
	return s.update(address, func(a *models.Asset) {
		a.Active = false
		a.GraduatedAt = &at
	})
}

func (s *Storage) SaveTrade(_ context.Context, trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stamp(&trade.BaseModel); err != nil {
		return err
	}
	row := *trade
	s.trades = append(s.trades, &row)
	return nil
}

// ListTrades returns trades of asset in the order they were saved.
func (s *Storage) ListTrades(_ context.Context, asset common.Address, limit, offset int) ([]*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Trade
	for _, t := range s.trades {
		if t.Asset == asset.Hex() {
			row := *t
			matched = append(matched, &row)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Storage) SaveGraduation(_ context.Context, g *models.Graduation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.graduations[g.Asset]; ok {
		return fmt.Errorf("graduation of %s already stored", g.Asset)
	}
	if err := s.stamp(&g.BaseModel); err != nil {
		return err
	}
	row := *g
	s.graduations[g.Asset] = &row
	return nil
}

func (s *Storage) SaveWithdrawal(_ context.Context, w *models.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stamp(&w.BaseModel); err != nil {
		return err
	}
	row := *w
	s.withdrawals = append(s.withdrawals, &row)
	return nil
}

// Withdrawals returns every stored withdrawal.
func (s *Storage) Withdrawals() []*models.Withdrawal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Withdrawal, len(s.withdrawals))
	for i, w := range s.withdrawals {
		row := *w
		out[i] = &row
	}
	return out
}

// RunMigrations is a no-op.
func (s *Storage) RunMigrations(context.Context) error { return nil }

func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
