package memory

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

func TestStorage_Assets(t *testing.T) {
	s := New()
	ctx := context.Background()
	addr := common.HexToAddress("0x0a")

	_, err := s.GetAsset(ctx, addr)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.SaveAsset(ctx, &models.Asset{Address: addr.Hex(), Symbol: "RDO", Active: true}))
	assert.Error(t, s.SaveAsset(ctx, &models.Asset{Address: addr.Hex()}))

	require.NoError(t, s.SetAssetActive(ctx, addr, false))
	row, err := s.GetAsset(ctx, addr)
	require.NoError(t, err)
	assert.False(t, row.Active)
	assert.NotZero(t, row.ID)

	at := time.Now().UTC()
	require.NoError(t, s.MarkGraduated(ctx, addr, at))
	row, err = s.GetAsset(ctx, addr)
	require.NoError(t, err)
	require.NotNil(t, row.GraduatedAt)
	assert.True(t, at.Equal(*row.GraduatedAt))

	assert.ErrorIs(t, s.SetAssetActive(ctx, common.HexToAddress("0x0b"), true), storage.ErrNotFound)
}

func TestStorage_TradesPaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveTrade(ctx, &models.Trade{Asset: a.Hex(), ValueIn: decimal.NewFromInt(int64(i))}))
	}
	require.NoError(t, s.SaveTrade(ctx, &models.Trade{Asset: b.Hex()}))

	all, err := s.ListTrades(ctx, a, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	page, err := s.ListTrades(ctx, a, 2, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "3", page[0].ValueIn.String())
	assert.Equal(t, "4", page[1].ValueIn.String())

	page, err = s.ListTrades(ctx, a, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStorage_Closed(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.SaveGraduation(ctx, &models.Graduation{Asset: "0x0a"}))
	assert.Error(t, s.SaveGraduation(ctx, &models.Graduation{Asset: "0x0a"}))
	require.NoError(t, s.SaveWithdrawal(ctx, &models.Withdrawal{Kind: models.WithdrawalIncome}))
	assert.Len(t, s.Withdrawals(), 1)

	require.NoError(t, s.Close())
	assert.Error(t, s.SaveTrade(ctx, &models.Trade{}))
}
