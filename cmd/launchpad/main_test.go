package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/app"
	"github.com/rovshanmuradov/launchpad/internal/curve"
)

func TestRunQuote(t *testing.T) {
	var out bytes.Buffer
	err := runQuote(&out, quoteRequest{
		Curve:       "1,2,3,4,5",
		Supply:      "1000",
		Sold:        "0",
		Buy:         "1",
		Sell:        "0",
		Royalty:     "10",
		ExchangeFee: "10",
	})
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "STEP")
	assert.Regexp(t, `4\s+800\s+1000\s+5`, s)
	assert.Regexp(t, `next unit price\s+1`, s)
	assert.Contains(t, s, "fee 0.1")
	assert.Contains(t, s, "royalty 0.09")
	assert.Contains(t, s, "tokens out 0.81")
	assert.Contains(t, s, "cost 0.81")
}

func TestRunQuote_CostShowsRoundingLeftover(t *testing.T) {
	var out bytes.Buffer
	err := runQuote(&out, quoteRequest{
		Curve:       "2,3",
		Supply:      "10",
		Sold:        "0",
		Buy:         "1.000000000000000001",
		Sell:        "0",
		Royalty:     "0",
		ExchangeFee: "0",
	})
	require.NoError(t, err)

	// one base unit of principal cannot buy anything at price 2
	s := out.String()
	assert.Contains(t, s, "principal 1.000000000000000001")
	assert.Contains(t, s, "tokens out 0.5")
	assert.Contains(t, s, "cost 1\n")
}

func TestRunQuote_Sell(t *testing.T) {
	var out bytes.Buffer
	err := runQuote(&out, quoteRequest{
		Curve:       "1,2",
		Supply:      "100",
		Sold:        "60",
		Buy:         "0",
		Sell:        "20",
		Royalty:     "0",
		ExchangeFee: "0",
	})
	require.NoError(t, err)

	// 10 units at price 2 and 10 at price 1
	assert.Contains(t, out.String(), "gross 30")
	assert.NotContains(t, out.String(), "tokens out")
}

func TestRunQuote_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  quoteRequest
	}{
		{name: "bad price", req: quoteRequest{Curve: "1,x", Supply: "10", Sold: "0", Buy: "0", Sell: "0", Royalty: "0", ExchangeFee: "0"}},
		{name: "decreasing curve", req: quoteRequest{Curve: "2,1", Supply: "10", Sold: "0", Buy: "0", Sell: "0", Royalty: "0", ExchangeFee: "0"}},
		{name: "sold above supply", req: quoteRequest{Curve: "1", Supply: "10", Sold: "11", Buy: "0", Sell: "0", Royalty: "0", ExchangeFee: "0"}},
		{name: "royalty above 100", req: quoteRequest{Curve: "1", Supply: "10", Sold: "0", Buy: "0", Sell: "0", Royalty: "101", ExchangeFee: "0"}},
		{name: "sell more than sold", req: quoteRequest{Curve: "1", Supply: "10", Sold: "1", Buy: "0", Sell: "2", Royalty: "0", ExchangeFee: "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, runQuote(&bytes.Buffer{}, tt.req))
		})
	}

	err := runQuote(&bytes.Buffer{}, quoteRequest{Curve: "2,1", Supply: "10", Sold: "0", Buy: "0", Sell: "0", Royalty: "0", ExchangeFee: "0"})
	assert.ErrorIs(t, err, curve.ErrInvalidCurve)
}

func TestPrintReport(t *testing.T) {
	cfg, err := simulationConfig()
	require.NoError(t, err)

	a, err := app.New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	report, err := a.Simulate(context.Background(), app.DefaultScenario(sandboxCreator))
	require.NoError(t, err)
	require.NoError(t, a.Close(context.Background()))

	var out bytes.Buffer
	require.NoError(t, printReport(&out, report))
	s := out.String()
	assert.Contains(t, s, report.Asset.Hex())
	assert.Contains(t, s, "graduated at price 1")
	assert.Contains(t, s, "pool reserves")
	assert.Contains(t, s, app.ActionSell)
}

func TestParseValues(t *testing.T) {
	vals, err := parseValues("1, 0.5,10")
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.Equal(t, "500000000000000000", vals[1].Dec())

	_, err = parseValues("1,-2")
	assert.Error(t, err)
}
