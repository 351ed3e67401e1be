package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/export"
	"github.com/rovshanmuradov/launchpad/internal/market"
	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

var creatorAddr = common.HexToAddress("0x0000000000000000000000000000000000000c01")

func testConfig() *config.Config {
	return &config.Config{
		Admin:              "0x0000000000000000000000000000000000000a01",
		MarketAddress:      "0x00000000000000000000000000000000000000aa",
		DexAddress:         "0x00000000000000000000000000000000000000dd",
		MaxCurveSteps:      10,
		CreationEnabled:    true,
		TokenTemplate:      "erc20",
		BalanceToDex:       "50",
		CreateFee:          "0.1",
		ExchangeFeePercent: "10",
		DexFeePercent:      "0.3",
		MetricsAddr:        "127.0.0.1:0",
		EventBuffer:        64,
	}
}

// countingStore records how many rows of each kind reached it.
type countingStore struct {
	mu          sync.Mutex
	assets      int
	trades      int
	graduations int
	migrated    bool
	closed      bool
}

func (s *countingStore) inc(n *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*n++
	return nil
}

func (s *countingStore) SaveAsset(context.Context, *models.Asset) error { return s.inc(&s.assets) }
func (s *countingStore) GetAsset(_ context.Context, a common.Address) (*models.Asset, error) {
	return nil, storage.NotFound("asset", a.Hex())
}
func (s *countingStore) SetAssetActive(context.Context, common.Address, bool) error { return nil }
func (s *countingStore) MarkGraduated(context.Context, common.Address, time.Time) error {
	return nil
}
func (s *countingStore) SaveTrade(context.Context, *models.Trade) error { return s.inc(&s.trades) }
func (s *countingStore) ListTrades(context.Context, common.Address, int, int) ([]*models.Trade, error) {
	return nil, nil
}
func (s *countingStore) SaveGraduation(context.Context, *models.Graduation) error {
	return s.inc(&s.graduations)
}
func (s *countingStore) SaveWithdrawal(context.Context, *models.Withdrawal) error { return nil }
func (s *countingStore) RunMigrations(context.Context) error {
	s.migrated = true
	return nil
}
func (s *countingStore) Close() error {
	s.closed = true
	return nil
}

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(), zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	return a
}

func TestApp_SimulateGraduates(t *testing.T) {
	store := &countingStore{}
	a := newTestApp(t, WithStorage(store))
	ctx := context.Background()

	report, err := a.Simulate(ctx, DefaultScenario(creatorAddr))
	require.NoError(t, err)

	actions := make([]string, len(report.Steps))
	for i, s := range report.Steps {
		actions[i] = s.Action
	}
	assert.Equal(t, []string{ActionCreate, ActionBuy, ActionSell, ActionBuy, ActionBuy, ActionBuy}, actions)
	assert.Zero(t, report.Skipped)

	// 1 buy at 10%/10% fees yields 0.81, half of it is sold back
	assert.Equal(t, "810000000000000000", report.Steps[1].TokensOut.Dec())
	assert.Equal(t, "405000000000000000", report.Steps[2].TokensIn.Dec())
	assert.Equal(t, "328050000000000000", report.Steps[2].ValueOut.Dec())
	assert.Equal(t, "405000000000000000", report.Steps[2].Balance.Dec())

	require.NotNil(t, report.Graduation)
	assert.True(t, report.Steps[len(report.Steps)-1].Graduated)
	assert.Equal(t, "61155000000000000000", report.Graduation.ValueAmount.Dec())
	assert.Equal(t, "61155000000000000000", report.Graduation.TokenAmount.Dec())
	assert.Equal(t, "877690000000000000000", report.Graduation.Retired.Dec())

	require.NotNil(t, report.Reserves)
	assert.Equal(t, "61155000000000000000", report.Reserves.Native.Dec())
	assert.False(t, report.Position.Active)
	assert.True(t, report.Position.Graduated)
	assert.True(t, report.Position.Balance.IsZero())

	dex := common.HexToAddress(testConfig().DexAddress)
	assert.Equal(t, "61155000000000000000", a.Bank.BalanceOf(dex).Dec())

	// market custody backs the protocol income plus the royalty accumulator
	custody := new(uint256.Int).Add(report.InternalBalance, report.Position.Royalty)
	assert.Equal(t, custody.Dec(), a.Bank.BalanceOf(a.Market.Address()).Dec())

	require.NoError(t, a.Close(ctx))
	assert.True(t, store.migrated)
	assert.True(t, store.closed)
	assert.Equal(t, 1, store.assets)
	assert.Equal(t, 5, store.trades)
	assert.Equal(t, 1, store.graduations)
}

func TestApp_SimulateStopsAfterGraduation(t *testing.T) {
	a := newTestApp(t)
	sc := DefaultScenario(creatorAddr)
	seventy := new(uint256.Int).Mul(uint256.NewInt(70), uint256.NewInt(1e18))
	sc.Buys = []*uint256.Int{seventy, sc.Buys[0]} // 56.7 principal crosses the threshold at once

	report, err := a.Simulate(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	require.NotNil(t, report.Graduation)
	assert.Equal(t, "56700000000000000000", report.Graduation.ValueAmount.Dec())
	assert.Len(t, report.Steps, 2)
	require.NoError(t, a.Close(context.Background()))
}

func TestApp_SimulateRejected(t *testing.T) {
	a := newTestApp(t)
	sc := DefaultScenario(creatorAddr)
	sc.Params.Curve = nil

	_, err := a.Simulate(context.Background(), sc)
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrInvalidParams)

	sc = DefaultScenario(creatorAddr)
	sc.SellPercent = 101
	_, err = a.Simulate(context.Background(), sc)
	assert.Error(t, err)
	require.NoError(t, a.Close(context.Background()))
}

func TestApp_StatusAndMetrics(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, err := a.Simulate(ctx, DefaultScenario(creatorAddr))
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, a.Market.Address().Hex(), st.Market)
	require.Len(t, st.Assets, 1)
	assert.Equal(t, "RDO", st.Assets[0].Symbol)
	assert.True(t, st.Assets[0].Graduated)
	assert.Equal(t, "0", st.Assets[0].Balance)
	assert.Equal(t, "0", st.Assets[0].Unsold)

	rec = httptest.NewRecorder()
	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "launchpad_graduations_total 1")
	assert.Contains(t, string(body), `launchpad_operations_total{op="mint",status="success"} 4`)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	// second close is a no-op
	assert.NoError(t, a.Close(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.DexFeePercent = "150"
	_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)

	failing := &failingMigrations{countingStore: &countingStore{}}
	_, err = New(context.Background(), testConfig(), zaptest.NewLogger(t), WithStorage(failing))
	assert.ErrorIs(t, err, errMigrate)
	assert.True(t, failing.closed)
}

var errMigrate = errors.New("migration lock held")

type failingMigrations struct {
	*countingStore
}

func (f *failingMigrations) RunMigrations(context.Context) error { return errMigrate }

func TestApp_ExportTrades(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	report, err := a.Simulate(ctx, DefaultScenario(creatorAddr))
	require.NoError(t, err)

	path, err := a.ExportTrades(ctx, report.Asset, export.ExportOptions{Format: export.FormatCSV, OutputDir: t.TempDir()})
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	// header plus buy, sell, buy, buy, buy
	assert.Len(t, strings.Split(strings.TrimSpace(string(content)), "\n"), 6)

	_, err = a.ExportTrades(ctx, common.HexToAddress("0x01"), export.ExportOptions{Format: export.FormatCSV, OutputDir: t.TempDir()})
	assert.Error(t, err)
	require.NoError(t, a.Close(ctx))
}

func TestApp_SimulateLogsByAssetAndAccount(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a, err := New(context.Background(), testConfig(), zap.New(core))
	require.NoError(t, err)

	sc := DefaultScenario(creatorAddr)
	report, err := a.Simulate(context.Background(), sc)
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))

	asset := zap.String("asset", report.Asset.Hex())
	assert.Equal(t, 1, logs.FilterMessage("Launch started").FilterField(asset).Len())
	assert.Equal(t, 1, logs.FilterMessage("Launch finished").FilterField(asset).Len())

	buys := logs.FilterMessage("Buy filled")
	assert.Equal(t, len(sc.Buys), buys.Len())
	assert.Equal(t, 1, buys.FilterField(zap.String("account", TraderAddress(0).Hex())).Len())

	done := logs.FilterMessage("Operation completed").FilterField(zap.String("operation", "simulate"))
	require.Equal(t, 1, done.Len())
	assert.Contains(t, done.All()[0].ContextMap(), "correlation_id")
	assert.Equal(t, "app", done.All()[0].LoggerName)
}
