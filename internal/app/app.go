// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/amm"
	"github.com/rovshanmuradov/launchpad/internal/bank"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/market"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/memory"
	"github.com/rovshanmuradov/launchpad/internal/storage/postgres"
	"github.com/rovshanmuradov/launchpad/internal/token"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

const (
	metricsNamespace = "launchpad"
	shutdownTimeout  = 15 * time.Second
)

// App wires the market to its collaborators and ambient services.
type App struct {
	Market  *market.Market
	Ledger  *token.Ledger
	Bank    *bank.Bank
	Pool    *amm.Pool
	Bus     *events.Bus
	Metrics *metrics.Collector
	Admin   common.Address

	cfg      *config.Config
	logger   *logger.Logger
	store    storage.Storage
	shutdown *ShutdownHandler
}

// Option customises New.
type Option func(*options)

type options struct {
	store storage.Storage
}

// WithStorage records history into store instead of connecting to postgres_url.
func WithStorage(store storage.Storage) Option {
	return func(o *options) { o.store = store }
}

// New builds every component described by cfg. Market history is recorded into postgres
// when postgres_url is set and into process memory otherwise.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	settings, err := cfg.MarketSettings()
	if err != nil {
		return nil, err
	}
	dexFee, err := cfg.DexFee()
	if err != nil {
		return nil, fmt.Errorf("invalid dex_fee_percent: %w", err)
	}
	pool, err := amm.NewPool(log, dexFee)
	if err != nil {
		return nil, err
	}

	a := &App{
		Ledger:   token.NewLedger(),
		Bank:     bank.New(),
		Pool:     pool,
		Bus:      events.NewBus(log, cfg.EventBuffer),
		Metrics:  metrics.NewCollector(metricsNamespace),
		Admin:    common.HexToAddress(cfg.Admin),
		cfg:      cfg,
		logger:   logger.FromZap(log.Named("app")),
		shutdown: NewShutdownHandler(log, shutdownTimeout),
	}

	// Порядок важен: хранилище закрывается после того, как шина выдаст все события.
	store := o.store
	switch {
	case store != nil:
	case cfg.PostgresURL != "":
		store, err = postgres.NewStorage(ctx, cfg.PostgresURL, postgres.DefaultOptions(), log)
		if err != nil {
			return nil, err
		}
	default:
		store = memory.New()
	}
	if err := store.RunMigrations(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	a.store = store
	a.shutdown.AddFunc("storage", func(context.Context) error { return store.Close() })
	storage.NewRecorder(store, log).Attach(a.Bus)
	a.Bus.SubscribeAll(events.HandlerFunc(a.Metrics.HandleEvent), events.MarketEvents...)
	a.shutdown.AddFunc("event_bus", a.Bus.Shutdown)

	a.Market, err = market.New(log, common.HexToAddress(cfg.MarketAddress), settings, market.Deps{
		Ledger:    a.Ledger,
		Bank:      a.Bank,
		Dex:       pool,
		Auth:      market.NewAdmins(a.Admin),
		Publisher: a.Bus,
		Observer:  a.Metrics,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.logger.Info("Launchpad initialised",
		zap.String("market", a.Market.Address().Hex()),
		zap.String("dex", settings.DexAddress.Hex()),
		zap.Bool("postgres", cfg.PostgresURL != ""))
	return a, nil
}

// Run serves /metrics and /status on the configured address until ctx is cancelled,
// then shuts every component down.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Serving metrics", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	return err
}

// History returns the store the recorder writes to.
func (a *App) History() storage.Storage {
	return a.store
}

// Close drains the event bus and releases the history store. It is safe to call twice.
func (a *App) Close(ctx context.Context) error {
	return a.shutdown.Shutdown(ctx)
}

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	mux.HandleFunc("/status", a.handleStatus)
	return mux
}
