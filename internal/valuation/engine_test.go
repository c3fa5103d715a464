package valuation

import (
	"testing"
	"time"

	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(usdTry float64, quotes ...domain.Quote) *domain.PriceTable {
	prices := make(map[string]domain.Quote, len(quotes))
	for _, q := range quotes {
		prices[q.Symbol] = q
	}
	now := time.Now()
	return &domain.PriceTable{
		Prices:      prices,
		UsdTry:      usdTry,
		LastUpdated: now,
		ExpiresAt:   now.Add(15 * time.Minute),
	}
}

func TestValue_USDPositionScenario(t *testing.T) {
	// 10 AAPL at avg cost 100 USD, quoted at 150, USD/TRY 35.
	engine := NewEngine(zerolog.Nop())
	positions := []domain.Position{{
		Symbol:      "AAPL",
		Kind:        domain.KindEquity,
		Category:    domain.CategoryUSEquity,
		Quantity:    10,
		AverageCost: 100,
		Currency:    domain.CurrencyUSD,
	}}
	table := newTable(35, domain.Quote{Symbol: "AAPL", Price: 150, Currency: "USD"})

	valued := engine.Value(positions, table)
	require.Len(t, valued, 1)

	v := valued[0]
	assert.Equal(t, 150.0, v.CurrentPrice)
	assert.Equal(t, 1500.0, v.CurrentValue)
	assert.Equal(t, 52500.0, v.CurrentValueTRY)
	assert.Equal(t, 35000.0, v.TotalCostTRY)
	assert.Equal(t, 17500.0, v.ProfitLoss)
	assert.Equal(t, 50.0, v.ProfitLossPercent)
	assert.Equal(t, 100.0, v.Weight)
}

func TestValue_MissingQuoteFallsBackToAverageCost(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	positions := []domain.Position{{
		Symbol:      "AFA",
		Kind:        domain.KindFund,
		Quantity:    1000,
		AverageCost: 2.5,
		Currency:    domain.CurrencyTRY,
	}}

	// The fund placeholder carries price 0, which means "use average cost".
	table := newTable(35, domain.Quote{Symbol: "AFA", Price: 0, Currency: "TRY"})

	valued := engine.Value(positions, table)
	require.Len(t, valued, 1)

	assert.Equal(t, 2.5, valued[0].CurrentPrice)
	assert.Equal(t, 2500.0, valued[0].CurrentValueTRY)
	assert.Equal(t, 0.0, valued[0].ProfitLoss)
}

func TestValue_ZeroCostYieldsZeroPercent(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	positions := []domain.Position{{
		Symbol:      "FREE",
		Quantity:    5,
		AverageCost: 0,
		Currency:    domain.CurrencyTRY,
	}}
	table := newTable(35, domain.Quote{Symbol: "FREE", Price: 10, Currency: "TRY"})

	valued := engine.Value(positions, table)
	require.Len(t, valued, 1)

	// Never NaN or a division error.
	assert.Equal(t, 0.0, valued[0].ProfitLossPercent)
	assert.Equal(t, 50.0, valued[0].ProfitLoss)
}

func TestValue_WeightsSumToHundred(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	positions := []domain.Position{
		{Symbol: "A", Quantity: 1, AverageCost: 300, Currency: domain.CurrencyTRY},
		{Symbol: "B", Quantity: 1, AverageCost: 700, Currency: domain.CurrencyTRY},
	}
	table := newTable(35)

	valued := engine.Value(positions, table)
	require.Len(t, valued, 2)

	assert.InDelta(t, 30.0, valued[0].Weight, 1e-9)
	assert.InDelta(t, 70.0, valued[1].Weight, 1e-9)
	assert.InDelta(t, 100.0, valued[0].Weight+valued[1].Weight, 1e-9)
}

func TestValue_ZeroTotalValueZeroWeights(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	positions := []domain.Position{
		{Symbol: "A", Quantity: 0, AverageCost: 100, Currency: domain.CurrencyTRY},
		{Symbol: "B", Quantity: 0, AverageCost: 200, Currency: domain.CurrencyTRY},
	}
	table := newTable(35)

	valued := engine.Value(positions, table)
	for _, v := range valued {
		assert.Equal(t, 0.0, v.Weight)
	}
}

func TestSummarize(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	valued := []domain.ValuedPosition{
		{TotalCostTRY: 1000, CurrentValueTRY: 1200},
		{TotalCostTRY: 500, CurrentValueTRY: 400},
	}

	summary := engine.Summarize(valued)

	assert.Equal(t, 1600.0, summary.TotalValueTRY)
	assert.Equal(t, 1500.0, summary.TotalCostTRY)
	assert.Equal(t, 100.0, summary.TotalProfitLoss)
	assert.InDelta(t, 6.6666, summary.TotalProfitLossPercent, 0.001)
}

func TestSummarize_ZeroCost(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	summary := engine.Summarize(nil)

	assert.Equal(t, 0.0, summary.TotalProfitLossPercent)
}

func TestAllocationByCategory(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	valued := []domain.ValuedPosition{
		{Position: domain.Position{Category: domain.CategoryUSEquity}, CurrentValueTRY: 600},
		{Position: domain.Position{Category: domain.CategoryCrypto}, CurrentValueTRY: 300},
		{Position: domain.Position{Category: domain.CategoryCashReserve}, CurrentValueTRY: 100},
	}

	slices := engine.AllocationByCategory(valued)
	require.Len(t, slices, 3)

	// Fixed display order: cash reserve, US equity, crypto.
	assert.Equal(t, domain.CategoryCashReserve, slices[0].Category)
	assert.Equal(t, 10.0, slices[0].Weight)
	assert.Equal(t, domain.CategoryUSEquity, slices[1].Category)
	assert.Equal(t, 60.0, slices[1].Weight)
	assert.Equal(t, domain.CategoryCrypto, slices[2].Category)
	assert.Equal(t, 30.0, slices[2].Weight)
}
