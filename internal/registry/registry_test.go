package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type record struct{ name string }

func TestRegistry_AppendAndLookup(t *testing.T) {
	r := New[record](zaptest.NewLogger(t))
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")

	i, err := r.Append(a, &record{name: "A"})
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = r.Append(b, &record{name: "B"})
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = r.Append(a, &record{})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	assert.Equal(t, 2, r.Len())
	addr, err := r.At(1)
	require.NoError(t, err)
	assert.Equal(t, b, addr)
	_, err = r.At(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.At(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	rec, ok := r.Get(a)
	require.True(t, ok)
	assert.Equal(t, "A", rec.name)

	assert.Equal(t, []common.Address{a, b}, r.List())
}

func TestRegistry_PopOnlyLast(t *testing.T) {
	r := New[record](zaptest.NewLogger(t))
	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	_, _ = r.Append(a, &record{})
	_, _ = r.Append(b, &record{})

	assert.ErrorIs(t, r.Pop(a), ErrNotFound)
	require.NoError(t, r.Pop(b))
	assert.Equal(t, 1, r.Len())
	_, ok := r.Get(b)
	assert.False(t, ok)
}

func TestDeriveAddress(t *testing.T) {
	market := common.HexToAddress("0x00000000000000000000000000000000000000f1")

	first := DeriveAddress(market, 0)
	assert.Equal(t, first, DeriveAddress(market, 0))
	assert.NotEqual(t, first, DeriveAddress(market, 1))
	assert.NotEqual(t, first, DeriveAddress(common.HexToAddress("0xf2"), 0))
	assert.NotEqual(t, common.Address{}, first)
}
