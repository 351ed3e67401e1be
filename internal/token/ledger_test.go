package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testToken = common.HexToAddress("0xaaaa")
	alice     = common.HexToAddress("0x01")
	bob       = common.HexToAddress("0x02")
)

func deployed(t *testing.T) *Ledger {
	l := NewLedger()
	require.NoError(t, l.Deploy(testToken, "Test", "TST", "standard", uint256.NewInt(1000), alice))
	return l
}

func TestLedger_Deploy(t *testing.T) {
	l := deployed(t)

	err := l.Deploy(testToken, "Again", "AGN", "standard", uint256.NewInt(1), bob)
	assert.ErrorIs(t, err, ErrTokenExists)

	info, err := l.Info(testToken)
	require.NoError(t, err)
	assert.Equal(t, "TST", info.Symbol)
	assert.Equal(t, uint64(1000), info.TotalSupply.Uint64())
	assert.Equal(t, uint64(1000), l.BalanceOf(testToken, alice).Uint64())

	l.Remove(testToken)
	_, err = l.Info(testToken)
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestLedger_MintBurn(t *testing.T) {
	l := deployed(t)

	require.NoError(t, l.MintTo(testToken, bob, uint256.NewInt(50)))
	supply, _ := l.TotalSupply(testToken)
	assert.Equal(t, uint64(1050), supply.Uint64())

	assert.ErrorIs(t, l.BurnFrom(testToken, bob, uint256.NewInt(51)), ErrInsufficientBalance)
	require.NoError(t, l.BurnFrom(testToken, bob, uint256.NewInt(50)))
	supply, _ = l.TotalSupply(testToken)
	assert.Equal(t, uint64(1000), supply.Uint64())

	assert.ErrorIs(t, l.MintTo(common.HexToAddress("0xdead"), bob, uint256.NewInt(1)), ErrUnknownToken)
}

func TestLedger_TransferFrom(t *testing.T) {
	l := deployed(t)

	err := l.TransferFrom(testToken, bob, alice, bob, uint256.NewInt(10))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, l.Approve(testToken, alice, bob, uint256.NewInt(10)))
	require.NoError(t, l.TransferFrom(testToken, bob, alice, bob, uint256.NewInt(4)))
	assert.Equal(t, uint64(6), l.Allowance(testToken, alice, bob).Uint64())
	assert.Equal(t, uint64(4), l.BalanceOf(testToken, bob).Uint64())
	assert.Equal(t, uint64(996), l.BalanceOf(testToken, alice).Uint64())

	err = l.TransferFrom(testToken, bob, alice, bob, uint256.NewInt(7))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)
}

func TestLedger_TransferFromKeepsAllowanceOnFailure(t *testing.T) {
	l := deployed(t)
	require.NoError(t, l.Transfer(testToken, alice, bob, uint256.NewInt(1000)))
	require.NoError(t, l.Approve(testToken, alice, bob, uint256.NewInt(10)))

	err := l.TransferFrom(testToken, bob, alice, bob, uint256.NewInt(5))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, uint64(10), l.Allowance(testToken, alice, bob).Uint64())
}
