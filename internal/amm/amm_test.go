package amm

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testAsset = common.HexToAddress("0x1111111111111111111111111111111111111111")

func TestSwapOut_ClosedForm(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		amountIn := rng.Uint64()
		reserveIn := rng.Uint64()
		reserveOut := rng.Uint64()
		if amountIn == 0 && reserveIn == 0 {
			continue
		}

		got, err := SwapOut(uint256.NewInt(amountIn), uint256.NewInt(reserveIn), uint256.NewInt(reserveOut))
		require.NoError(t, err)

		num := new(big.Int).Mul(new(big.Int).SetUint64(amountIn), new(big.Int).SetUint64(reserveOut))
		den := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), new(big.Int).SetUint64(amountIn))
		want := new(big.Int).Quo(num, den)
		assert.Equal(t, want.String(), got.Dec())
	}
}

func TestSwapOut_Edges(t *testing.T) {
	_, err := SwapOut(uint256.NewInt(0), uint256.NewInt(0), uint256.NewInt(10))
	assert.ErrorIs(t, err, ErrEmptyPool)

	out, err := SwapOut(uint256.NewInt(0), uint256.NewInt(5), uint256.NewInt(10))
	require.NoError(t, err)
	assert.True(t, out.IsZero())

	// empty input reserve hands out the entire output side
	out, err = SwapOut(uint256.NewInt(7), uint256.NewInt(0), uint256.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), out.Uint64())
}

func TestPool_SeedLiquidity(t *testing.T) {
	pool, err := NewPool(zaptest.NewLogger(t), 0)
	require.NoError(t, err)

	require.NoError(t, pool.SeedLiquidity(testAsset, uint256.NewInt(1000), uint256.NewInt(500)))

	err = pool.SeedLiquidity(testAsset, uint256.NewInt(1), uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrAlreadySeeded)

	err = pool.SeedLiquidity(common.HexToAddress("0x2"), uint256.NewInt(0), uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrZeroAmount)

	r, err := pool.Reserves(testAsset)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), r.Token.Uint64())
	assert.Equal(t, uint64(500), r.Native.Uint64())

	// returned reserves are copies
	r.Token.SetUint64(1)
	again, _ := pool.Reserves(testAsset)
	assert.Equal(t, uint64(1000), again.Token.Uint64())

	assert.Equal(t, []common.Address{testAsset}, pool.Assets())
}

func TestPool_BuySellMoveReserves(t *testing.T) {
	pool, err := NewPool(zaptest.NewLogger(t), 0)
	require.NoError(t, err)
	require.NoError(t, pool.SeedLiquidity(testAsset, uint256.NewInt(1_000_000), uint256.NewInt(1_000)))

	k := func() *big.Int {
		r, _ := pool.Reserves(testAsset)
		return new(big.Int).Mul(r.Token.ToBig(), r.Native.ToBig())
	}
	k0 := k()

	quoted, err := pool.QuoteBuy(testAsset, uint256.NewInt(100))
	require.NoError(t, err)
	tokens, err := pool.Buy(testAsset, uint256.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, quoted.Uint64(), tokens.Uint64())
	// 100 * 1e6 / 1100
	assert.Equal(t, uint64(90909), tokens.Uint64())

	r, _ := pool.Reserves(testAsset)
	assert.Equal(t, uint64(1_100), r.Native.Uint64())
	assert.Equal(t, uint64(1_000_000-90909), r.Token.Uint64())
	assert.True(t, k().Cmp(k0) >= 0)

	k1 := k()
	native, err := pool.Sell(testAsset, tokens)
	require.NoError(t, err)
	assert.LessOrEqual(t, native.Uint64(), uint64(100))
	r, _ = pool.Reserves(testAsset)
	assert.Equal(t, uint64(1_000_000), r.Token.Uint64())
	assert.True(t, k().Cmp(k1) >= 0)
}

func TestPool_FeeStaysInPool(t *testing.T) {
	pool, err := NewPool(zaptest.NewLogger(t), 1_000) // 1%
	require.NoError(t, err)
	require.NoError(t, pool.SeedLiquidity(testAsset, uint256.NewInt(1_000_000), uint256.NewInt(1_000_000)))

	out, err := pool.Buy(testAsset, uint256.NewInt(10_000))
	require.NoError(t, err)
	// 9900 * 1e6 / (1e6 + 9900)
	assert.Equal(t, uint64(9802), out.Uint64())

	r, _ := pool.Reserves(testAsset)
	assert.Equal(t, uint64(1_010_000), r.Native.Uint64())
}

func TestPool_Errors(t *testing.T) {
	_, err := NewPool(zaptest.NewLogger(t), 100_001)
	assert.Error(t, err)

	pool, err := NewPool(zaptest.NewLogger(t), 0)
	require.NoError(t, err)

	_, err = pool.Buy(testAsset, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrPoolNotFound)
	_, err = pool.Reserves(testAsset)
	assert.ErrorIs(t, err, ErrPoolNotFound)

	require.NoError(t, pool.SeedLiquidity(testAsset, uint256.NewInt(10), uint256.NewInt(10)))
	_, err = pool.Sell(testAsset, uint256.NewInt(0))
	assert.ErrorIs(t, err, ErrZeroAmount)
	// 1 * 10 / 11 rounds to nothing
	_, err = pool.Buy(testAsset, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrZeroAmount)
}
