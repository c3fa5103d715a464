// Package prices implements the price aggregation and caching layer: it
// reconciles the equity, crypto and FX sources into a single time-bounded
// PriceTable and serves it from a process-wide cache.
package prices

import (
	"context"
	"sync"
	"time"

	"github.com/portfoyapp/portfoy/internal/classify"
	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/rs/zerolog"
)

// TableTTL is how long an aggregated price table stays valid.
const TableTTL = 15 * time.Minute

// EquitySource fetches quotes for equity symbols.
type EquitySource interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error)
}

// CryptoSource fetches quotes for crypto symbols.
type CryptoSource interface {
	GetPrices(ctx context.Context, symbols []string) (map[string]domain.Quote, error)
}

// RateSource provides the USD/TRY rate. Implementations never fail - they
// fall back to a fixed constant instead.
type RateSource interface {
	GetUsdTry(ctx context.Context) float64
}

// Aggregator orchestrates the source adapters and merges their output into a
// unified price table.
type Aggregator struct {
	classifier classify.Classifier
	equities   EquitySource
	crypto     CryptoSource
	rates      RateSource
	now        func() time.Time
	log        zerolog.Logger
}

// NewAggregator creates a new price aggregator.
func NewAggregator(
	classifier classify.Classifier,
	equities EquitySource,
	crypto CryptoSource,
	rates RateSource,
	log zerolog.Logger,
) *Aggregator {
	return &Aggregator{
		classifier: classifier,
		equities:   equities,
		crypto:     crypto,
		rates:      rates,
		now:        time.Now,
		log:        log.With().Str("component", "aggregator").Logger(),
	}
}

// Refresh builds a fresh price table for the requested symbols.
//
// Symbols are classified into provider buckets and the adapters run
// concurrently, joined independently so one slow or failing provider cannot
// block the others. Adapter failures are contained: they surface as gaps in
// the table, never as an error from Refresh. Stablecoins are priced at a
// fixed 1 USD without any network call and win over anything an adapter may
// have returned for the same symbol. Fund-bucket symbols get a zero-price
// TRY placeholder so valuation knows to fall back to average cost.
func (a *Aggregator) Refresh(ctx context.Context, symbols []string) (*domain.PriceTable, error) {
	buckets := a.classifier.Classify(symbols)

	var (
		wg           sync.WaitGroup
		equityQuotes map[string]domain.Quote
		cryptoQuotes map[string]domain.Quote
		usdTry       float64
	)

	wg.Add(3)

	go func() {
		defer wg.Done()
		quotes, err := a.equities.GetQuotes(ctx, buckets.Equity)
		if err != nil {
			a.log.Warn().Err(err).Strs("symbols", buckets.Equity).Msg("Equity source failed, leaving gaps")
			return
		}
		equityQuotes = quotes
	}()

	go func() {
		defer wg.Done()
		quotes, err := a.crypto.GetPrices(ctx, buckets.Crypto)
		if err != nil {
			a.log.Warn().Err(err).Strs("symbols", buckets.Crypto).Msg("Crypto source failed, leaving gaps")
			return
		}
		cryptoQuotes = quotes
	}()

	go func() {
		defer wg.Done()
		usdTry = a.rates.GetUsdTry(ctx)
	}()

	wg.Wait()

	now := a.now()
	merged := make(map[string]domain.Quote, len(equityQuotes)+len(cryptoQuotes)+len(buckets.Stablecoin)+len(buckets.Fund))

	// Buckets are disjoint by construction, so insertion order only matters
	// for the stablecoin override below.
	for symbol, quote := range equityQuotes {
		merged[symbol] = quote
	}
	for symbol, quote := range cryptoQuotes {
		merged[symbol] = quote
	}

	// Stablecoins always price at exactly 1 USD, regardless of upstream data.
	for _, symbol := range buckets.Stablecoin {
		merged[symbol] = domain.Quote{
			Symbol:      symbol,
			Price:       1,
			Change24h:   0,
			Currency:    domain.CurrencyUSD,
			LastUpdated: now,
		}
	}

	// Unlisted funds have no public feed. The zero-price placeholder tells
	// valuation to use the position's average cost.
	for _, symbol := range buckets.Fund {
		if _, ok := merged[symbol]; ok {
			continue
		}
		merged[symbol] = domain.Quote{
			Symbol:      symbol,
			Price:       0,
			Change24h:   0,
			Currency:    domain.CurrencyTRY,
			LastUpdated: now,
		}
	}

	a.log.Info().
		Int("symbols", len(symbols)).
		Int("priced", len(merged)).
		Float64("usd_try", usdTry).
		Msg("Price table refreshed")

	return &domain.PriceTable{
		Prices:      merged,
		UsdTry:      usdTry,
		LastUpdated: now,
		ExpiresAt:   now.Add(TableTTL),
	}, nil
}
