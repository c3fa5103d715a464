package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/portfoyapp/portfoy/internal/classify"
	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEquitySource struct {
	quotes map[string]domain.Quote
	err    error
	calls  int
}

func (s *stubEquitySource) GetQuotes(_ context.Context, symbols []string) (map[string]domain.Quote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]domain.Quote)
	for _, sym := range symbols {
		if q, ok := s.quotes[sym]; ok {
			out[sym] = q
		}
	}
	return out, nil
}

type stubCryptoSource struct {
	quotes map[string]domain.Quote
	err    error
	calls  int
}

func (s *stubCryptoSource) GetPrices(_ context.Context, symbols []string) (map[string]domain.Quote, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]domain.Quote)
	for _, sym := range symbols {
		if q, ok := s.quotes[sym]; ok {
			out[sym] = q
		}
	}
	return out, nil
}

type stubRateSource struct {
	rate float64
}

func (s *stubRateSource) GetUsdTry(context.Context) float64 {
	return s.rate
}

func newTestAggregator(eq *stubEquitySource, cr *stubCryptoSource, rate float64) *Aggregator {
	classifier := classify.NewHeuristic([]string{"BTC", "ETH"})
	return NewAggregator(classifier, eq, cr, &stubRateSource{rate: rate}, zerolog.Nop())
}

func quote(symbol string, price float64) domain.Quote {
	return domain.Quote{Symbol: symbol, Price: price, Currency: "USD", LastUpdated: time.Now()}
}

func TestRefresh_MergesAllBuckets(t *testing.T) {
	eq := &stubEquitySource{quotes: map[string]domain.Quote{"AAPL": quote("AAPL", 150)}}
	cr := &stubCryptoSource{quotes: map[string]domain.Quote{"BTC": quote("BTC", 64000)}}
	agg := newTestAggregator(eq, cr, 35)

	table, err := agg.Refresh(context.Background(), []string{"AAPL", "BTC", "USDT", "AFA"})
	require.NoError(t, err)

	assert.Equal(t, 35.0, table.UsdTry)
	assert.Equal(t, 150.0, table.Prices["AAPL"].Price)
	assert.Equal(t, 64000.0, table.Prices["BTC"].Price)

	// Stablecoin short-circuit: fixed 1 USD, no adapter involvement.
	assert.Equal(t, 1.0, table.Prices["USDT"].Price)
	assert.Equal(t, "USD", table.Prices["USDT"].Currency)

	// Fund placeholder: zero price in TRY signals average-cost fallback.
	assert.Equal(t, 0.0, table.Prices["AFA"].Price)
	assert.Equal(t, "TRY", table.Prices["AFA"].Currency)

	assert.Equal(t, TableTTL, table.ExpiresAt.Sub(table.LastUpdated))
}

func TestRefresh_CryptoFailureLeavesGap(t *testing.T) {
	// Round-trip property: {USDT, BTC} with the crypto source down still
	// yields USDT at 1 USD and a BTC gap, not a failure.
	eq := &stubEquitySource{}
	cr := &stubCryptoSource{err: errors.New("provider down")}
	agg := newTestAggregator(eq, cr, 35)

	table, err := agg.Refresh(context.Background(), []string{"USDT", "BTC"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, table.Prices["USDT"].Price)
	assert.NotContains(t, table.Prices, "BTC")
}

func TestRefresh_EquityFailureDoesNotBlockOthers(t *testing.T) {
	eq := &stubEquitySource{err: errors.New("quote API 429")}
	cr := &stubCryptoSource{quotes: map[string]domain.Quote{"BTC": quote("BTC", 64000)}}
	agg := newTestAggregator(eq, cr, 34.7)

	table, err := agg.Refresh(context.Background(), []string{"AAPL", "BTC"})
	require.NoError(t, err)

	assert.NotContains(t, table.Prices, "AAPL")
	assert.Equal(t, 64000.0, table.Prices["BTC"].Price)
	assert.Equal(t, 34.7, table.UsdTry)
}

func TestRefresh_StablecoinWinsOverAdapterData(t *testing.T) {
	// Even if an upstream source reports a depegged price for a stablecoin,
	// the table must carry exactly 1 USD.
	eq := &stubEquitySource{}
	cr := &stubCryptoSource{quotes: map[string]domain.Quote{"USDT": quote("USDT", 0.97)}}
	classifier := classify.NewHeuristic([]string{"BTC", "USDT"})
	agg := NewAggregator(classifier, eq, cr, &stubRateSource{rate: 35}, zerolog.Nop())

	table, err := agg.Refresh(context.Background(), []string{"USDT"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, table.Prices["USDT"].Price)
	assert.Equal(t, 0.0, table.Prices["USDT"].Change24h)
}

func TestRefresh_EmptySymbolSet(t *testing.T) {
	eq := &stubEquitySource{}
	cr := &stubCryptoSource{}
	agg := newTestAggregator(eq, cr, 35)

	table, err := agg.Refresh(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, table.Prices)
	assert.Equal(t, 35.0, table.UsdTry)
}
