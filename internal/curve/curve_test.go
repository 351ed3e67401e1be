package curve

import (
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ether = uint256.MustFromDecimal("1000000000000000000")

func eth(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), ether)
}

func prices(values ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		out[i] = uint256.NewInt(v)
	}
	return out
}

func etherPrices(values ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		out[i] = eth(v)
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		prices    []*uint256.Int
		maxSupply *uint256.Int
		maxSteps  int
		wantErr   bool
	}{
		{name: "valid", prices: prices(1, 2, 3, 4, 5), maxSupply: eth(1000), maxSteps: 10},
		{name: "no cap", prices: prices(1, 2, 3), maxSupply: eth(1000), maxSteps: 0},
		{name: "empty", prices: nil, maxSupply: eth(1000), maxSteps: 10, wantErr: true},
		{name: "too many steps", prices: prices(1, 2, 3), maxSupply: eth(1000), maxSteps: 2, wantErr: true},
		{name: "equal neighbours", prices: prices(1, 2, 2, 3), maxSupply: eth(1000), wantErr: true},
		{name: "decreasing", prices: prices(5, 4), maxSupply: eth(1000), wantErr: true},
		{name: "zero price", prices: prices(0, 1), maxSupply: eth(1000), wantErr: true},
		{name: "zero supply", prices: prices(1, 2), maxSupply: uint256.NewInt(0), wantErr: true},
		{name: "supply below steps", prices: prices(1, 2, 3), maxSupply: uint256.NewInt(2), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.prices, tt.maxSupply, tt.maxSteps)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCurve)
				return
			}
			assert.NoError(t, err)
		})
	}
}

// Figures below match the reference numbers produced by the original market contract.
func TestBuyAmountOut_ReferenceValues(t *testing.T) {
	curve := etherPrices(1, 2, 3, 4, 5)

	out, err := BuyAmountOut(eth(10), eth(1000), eth(1000), curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), out.Uint64())

	out, err = BuyAmountOut(eth(10), eth(10), eth(1000), curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), out.Uint64())
}

func TestSellValueOut_ReferenceValues(t *testing.T) {
	curve := etherPrices(1, 2, 3, 4, 5)

	out, err := SellValueOut(eth(10), eth(990), eth(1000), curve)
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000000000000000000000000", out.Dec())

	out, err = SellValueOut(eth(10), eth(100), eth(1000), curve)
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000000000000000000000000", out.Dec())
}

func TestBuyAmountOut_CrossesSegments(t *testing.T) {
	// 5 segments of 20 units priced 1..5
	curve := prices(1, 2, 3, 4, 5)
	maxSupply := uint256.NewInt(100)

	// 20 units at 1 + 10 units at 2 = 40
	out, err := BuyAmountOut(uint256.NewInt(40), maxSupply, maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), out.Uint64())

	// 41 leaves 1 unit of value in segment 2 which buys nothing more (floor)
	out, err = BuyAmountOut(uint256.NewInt(41), maxSupply, maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), out.Uint64())

	// starting mid-segment: 25 sold, 15 left at price 2 cost 30, then 3 per unit
	out, err = BuyAmountOut(uint256.NewInt(36), uint256.NewInt(75), maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), out.Uint64())
}

func TestBuyAmountOut_WholeCurve(t *testing.T) {
	curve := prices(1, 2, 3, 4, 5)
	maxSupply := uint256.NewInt(100)

	// 20 * (1+2+3+4+5) = 300 buys the full supply exactly
	out, err := BuyAmountOut(uint256.NewInt(300), maxSupply, maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), out.Uint64())

	_, err = BuyAmountOut(uint256.NewInt(301), maxSupply, maxSupply, curve)
	assert.ErrorIs(t, err, ErrCurveExhausted)

	_, err = BuyAmountOut(uint256.NewInt(1), uint256.NewInt(0), maxSupply, curve)
	assert.ErrorIs(t, err, ErrCurveExhausted)
}

func TestBuyAmountOut_RemainderGoesToLastSegment(t *testing.T) {
	// 103 / 5 = 20 per segment, the last one holds 23
	curve := prices(1, 2, 3, 4, 5)
	maxSupply := uint256.NewInt(103)

	steps, err := Steps(maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(80), steps[4].Start.Uint64())
	assert.Equal(t, uint64(103), steps[4].End.Uint64())

	out, err := BuyAmountOut(uint256.NewInt(300+15), maxSupply, maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(103), out.Uint64())
}

func TestSellValueOut_Errors(t *testing.T) {
	curve := prices(1, 2, 3, 4, 5)
	maxSupply := uint256.NewInt(100)

	_, err := SellValueOut(uint256.NewInt(11), uint256.NewInt(90), maxSupply, curve)
	assert.ErrorIs(t, err, ErrCurveExhausted)

	_, err = SellValueOut(uint256.NewInt(1), uint256.NewInt(101), maxSupply, curve)
	assert.ErrorIs(t, err, ErrInvalidPosition)

	out, err := SellValueOut(uint256.NewInt(0), uint256.NewInt(50), maxSupply, curve)
	require.NoError(t, err)
	assert.True(t, out.IsZero())
}

func TestSellValueOut_WalksDown(t *testing.T) {
	curve := prices(1, 2, 3, 4, 5)
	maxSupply := uint256.NewInt(100)

	// 45 sold: 5 units at 3, 20 at 2, 5 at 1
	out, err := SellValueOut(uint256.NewInt(30), uint256.NewInt(55), maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(15+40+5), out.Uint64())
}

func TestCostAndSpotPrice(t *testing.T) {
	curve := prices(1, 2, 3, 4, 5)
	maxSupply := uint256.NewInt(100)

	cost, err := Cost(uint256.NewInt(30), maxSupply, maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), cost.Uint64())

	_, err = Cost(uint256.NewInt(11), uint256.NewInt(10), maxSupply, curve)
	assert.ErrorIs(t, err, ErrCurveExhausted)

	spot, err := SpotPrice(maxSupply, maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), spot.Uint64())

	spot, err = SpotPrice(uint256.NewInt(80), maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), spot.Uint64())

	spot, err = SpotPrice(uint256.NewInt(0), maxSupply, curve)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), spot.Uint64())
}

func TestBuyThenSellNeverCreatesValue(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	curves := [][]*uint256.Int{
		prices(1, 2, 3, 4, 5),
		prices(3, 7, 11),
		prices(1000, 1001, 5000, 9000, 9001, 12000),
		etherPrices(1, 2, 3),
	}

	for round := 0; round < 500; round++ {
		c := curves[rng.Intn(len(curves))]
		maxSupply := uint256.NewInt(uint64(len(c)) * uint64(1+rng.Intn(10_000)))
		unsold := new(uint256.Int).Sub(maxSupply, uint256.NewInt(uint64(rng.Int63n(int64(maxSupply.Uint64())))))
		principal := uint256.NewInt(uint64(rng.Int63n(1 << 40)))

		units, err := BuyAmountOut(principal, unsold, maxSupply, c)
		if err != nil {
			assert.ErrorIs(t, err, ErrCurveExhausted)
			continue
		}
		after := new(uint256.Int).Sub(unsold, units)
		back, err := SellValueOut(units, after, maxSupply, c)
		require.NoError(t, err)
		assert.False(t, back.Gt(principal), "round %d: sold %s for %s but paid %s", round, units.Dec(), back.Dec(), principal.Dec())
	}
}
