// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

// migrationLockID is the advisory lock key guarding AutoMigrate.
const migrationLockID = 4_104_101

// gormLogger реализует интерфейс logger.Interface для GORM
type gormLogger struct {
	zapLogger     *zap.Logger
	logLevel      logger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger:     zapLogger,
		logLevel:      logger.Warn,
		slowThreshold: 200 * time.Millisecond,
	}
}

// LogMode реализация интерфейса logger.Interface
func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

// Trace логирует SQL: ошибки всегда, медленные запросы на Warn, остальное на Info.
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
	case elapsed > l.slowThreshold && l.logLevel >= logger.Warn:
		l.zapLogger.Warn("slow query", fields...)
	case l.logLevel >= logger.Info:
		l.zapLogger.Info("trace", fields...)
	}
}

// Options tune the connection.
type Options struct {
	ConnectTimeout time.Duration // total time spent retrying the first ping
	MaxOpenConns   int
	MaxIdleConns   int
}

// DefaultOptions returns the options used by the serve command.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 30 * time.Second,
		MaxOpenConns:   20,
		MaxIdleConns:   5,
	}
}

// postgresStorage реализует интерфейс Storage
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStorage opens dsn and retries the first ping with exponential backoff until
// opts.ConnectTimeout elapses.
func NewStorage(ctx context.Context, dsn string, opts Options, zapLogger *zap.Logger) (storage.Storage, error) {
	zapLogger = zapLogger.Named("storage")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	notify := func(err error, next time.Duration) {
		zapLogger.Warn("Database not ready, retrying", zap.Error(err), zap.Duration("backoff", next))
	}
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, sqlDB.PingContext(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(opts.ConnectTimeout),
		backoff.WithNotify(notify))
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	zapLogger.Info("Connected to database")
	return &postgresStorage{db: db, logger: zapLogger}, nil
}

// RunMigrations применяет AutoMigrate под advisory-блокировкой.
func (p *postgresStorage) RunMigrations(ctx context.Context) error {
	db := p.db.WithContext(ctx)

	var lockObtained bool
	if err := db.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error; err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return errors.New("another migration is in progress")
	}
	defer db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)

	if err := db.AutoMigrate(
		&models.Asset{},
		&models.Trade{},
		&models.Graduation{},
		&models.Withdrawal{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (p *postgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *postgresStorage) SaveAsset(ctx context.Context, asset *models.Asset) error {
	return p.db.WithContext(ctx).Create(asset).Error
}

func (p *postgresStorage) GetAsset(ctx context.Context, address common.Address) (*models.Asset, error) {
	var asset models.Asset
	err := p.db.WithContext(ctx).Where("address = ?", address.Hex()).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.NotFound("asset", address.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (p *postgresStorage) SetAssetActive(ctx context.Context, address common.Address, active bool) error {
	return p.updateAsset(ctx, address, map[string]interface{}{"active": active})
}

func (p *postgresStorage) MarkGraduated(ctx context.Context, address common.Address, at time.Time) error {
	return p.updateAsset(ctx, address, map[string]interface{}{
		"active":       false,
		"graduated_at": at,
	})
}

func (p *postgresStorage) updateAsset(ctx context.Context, address common.Address, fields map[string]interface{}) error {
	res := p.db.WithContext(ctx).Model(&models.Asset{}).
		Where("address = ?", address.Hex()).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.NotFound("asset", address.Hex())
	}
	return nil
}

func (p *postgresStorage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return p.db.WithContext(ctx).Create(trade).Error
}

func (p *postgresStorage) ListTrades(ctx context.Context, asset common.Address, limit, offset int) ([]*models.Trade, error) {
	var trades []*models.Trade
	q := p.db.WithContext(ctx).
		Where("asset = ?", asset.Hex()).
		Order("occurred_at asc, id asc").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&trades).Error
	return trades, err
}

func (p *postgresStorage) SaveGraduation(ctx context.Context, g *models.Graduation) error {
	return p.db.WithContext(ctx).Create(g).Error
}

func (p *postgresStorage) SaveWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	return p.db.WithContext(ctx).Create(w).Error
}
