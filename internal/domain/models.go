// Package domain contains the core data model shared by all layers.
// It has no infrastructure dependencies.
package domain

import "time"

// InstrumentKind identifies what kind of instrument a position holds.
type InstrumentKind string

const (
	KindFund   InstrumentKind = "fund" // TEFAS fund, no public price feed
	KindEquity InstrumentKind = "equity"
	KindCrypto InstrumentKind = "crypto"
	KindCash   InstrumentKind = "cash"
)

// Category groups positions for allocation reporting.
type Category string

const (
	CategoryCashReserve Category = "cash_reserve"
	CategoryUSEquity    Category = "us_equity"
	CategoryCrypto      Category = "crypto"
)

// Supported holding currencies.
const (
	CurrencyTRY = "TRY"
	CurrencyUSD = "USD"
)

// Quote is a single provider's price reading for one symbol at one instant.
// A Price of 0 means "unknown, use fallback" - never an actual zero price.
// Quotes are immutable once produced by an adapter.
type Quote struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	Change24h   float64   `json:"change24h"`
	Currency    string    `json:"currency"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// PriceTable is the merged, time-bounded snapshot of quotes plus the USD/TRY
// rate. It is owned by the price cache and replaced wholesale on refresh,
// never mutated in place.
type PriceTable struct {
	Prices      map[string]Quote `json:"prices"`
	UsdTry      float64          `json:"usdTry"`
	LastUpdated time.Time        `json:"lastUpdated"`
	ExpiresAt   time.Time        `json:"expiresAt"`
}

// Quote returns the quote for a symbol, if present.
func (t *PriceTable) Quote(symbol string) (Quote, bool) {
	q, ok := t.Prices[symbol]
	return q, ok
}

// HasAll reports whether every given symbol has an entry in the table.
func (t *PriceTable) HasAll(symbols []string) bool {
	for _, s := range symbols {
		if _, ok := t.Prices[s]; !ok {
			return false
		}
	}
	return true
}

// Position is a held portfolio line item. Positions are created and edited by
// the user through the position repository; the valuation layer treats them
// as read-only input.
type Position struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner"`
	Symbol      string         `json:"symbol"`
	Name        string         `json:"name"`
	Kind        InstrumentKind `json:"type"`
	Category    Category       `json:"category"`
	Quantity    float64        `json:"quantity"`
	AverageCost float64        `json:"averageCost"`
	Currency    string         `json:"currency"`
}

// ValuedPosition is a Position enriched with derived valuation figures.
// It is recomputed fresh on every valuation pass and never persisted as the
// source of truth.
type ValuedPosition struct {
	Position
	CurrentPrice      float64 `json:"currentPrice"`
	TotalCost         float64 `json:"totalCost"`
	CurrentValue      float64 `json:"currentValue"`
	TotalCostTRY      float64 `json:"totalCostTRY"`
	CurrentValueTRY   float64 `json:"currentValueTRY"`
	ProfitLoss        float64 `json:"profitLoss"`
	ProfitLossPercent float64 `json:"profitLossPercent"`
	Weight            float64 `json:"weight"`
}

// PortfolioSummary holds portfolio-level rollups over a valuation pass.
type PortfolioSummary struct {
	TotalValueTRY          float64   `json:"totalValueTRY"`
	TotalCostTRY           float64   `json:"totalCostTRY"`
	TotalProfitLoss        float64   `json:"totalProfitLoss"`
	TotalProfitLossPercent float64   `json:"totalProfitLossPercent"`
	LastUpdated            time.Time `json:"lastUpdated"`
}

// AllocationSlice is one category's share of the portfolio.
type AllocationSlice struct {
	Category Category `json:"category"`
	ValueTRY float64  `json:"valueTRY"`
	Weight   float64  `json:"weight"`
}

// SnapshotPosition is the per-position record serialized into a snapshot.
type SnapshotPosition struct {
	Symbol      string         `json:"symbol" msgpack:"symbol"`
	Name        string         `json:"name" msgpack:"name"`
	Kind        InstrumentKind `json:"type" msgpack:"type"`
	Category    Category       `json:"category" msgpack:"category"`
	Quantity    float64        `json:"quantity" msgpack:"quantity"`
	AverageCost float64        `json:"averageCost" msgpack:"average_cost"`
	Currency    string         `json:"currency" msgpack:"currency"`
	ValueTRY    float64        `json:"valueTRY" msgpack:"value_try"`
}

// Snapshot is a persisted point-in-time portfolio capture, keyed by owner and
// ISO calendar week. The weekly job upserts so there is at most one snapshot
// per (owner, week).
type Snapshot struct {
	ID            string             `json:"id"`
	Owner         string             `json:"owner"`
	TotalValueTRY float64            `json:"totalValueTRY"`
	WeekNumber    int                `json:"weekNumber"`
	Positions     []SnapshotPosition `json:"positions"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// SearchResult is a normalized instrument search hit.
type SearchResult struct {
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	Kind     InstrumentKind `json:"type"`
	Exchange string         `json:"exchange"`
}
