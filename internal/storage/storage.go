// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// Storage определяет интерфейс для хранения истории рынка
type Storage interface {
	// Активы
	SaveAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, address common.Address) (*models.Asset, error)
	SetAssetActive(ctx context.Context, address common.Address, active bool) error
	MarkGraduated(ctx context.Context, address common.Address, at time.Time) error

	// Сделки
	SaveTrade(ctx context.Context, trade *models.Trade) error
	ListTrades(ctx context.Context, asset common.Address, limit, offset int) ([]*models.Trade, error)

	// Выпуск в пул и выводы средств
	SaveGraduation(ctx context.Context, g *models.Graduation) error
	SaveWithdrawal(ctx context.Context, w *models.Withdrawal) error

	// Миграции
	RunMigrations(ctx context.Context) error
	Close() error
}

// NotFound wraps ErrNotFound with the lookup key.
func NotFound(kind, key string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, key)
}
