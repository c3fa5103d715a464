// Package valuation computes per-position and portfolio-level value, cost,
// profit/loss and weight from positions and an aggregated price table.
// Everything here is a pure function of its inputs - no hidden state.
package valuation

import (
	"time"

	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/rs/zerolog"
)

// Engine values positions against a price table.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a valuation engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "valuation").Logger(),
	}
}

// Value computes derived figures for every position.
//
// The current price resolves through a fallback chain: the table's quote when
// present and nonzero, otherwise the position's own average cost. A zero or
// missing quote means "price unavailable", never "worth nothing" - fund
// placeholders rely on this. Weights are filled in a second pass once the
// portfolio total is known; when the total is zero every weight is zero.
func (e *Engine) Value(positions []domain.Position, table *domain.PriceTable) []domain.ValuedPosition {
	valued := make([]domain.ValuedPosition, 0, len(positions))
	var totalValueTRY float64

	for _, pos := range positions {
		price := pos.AverageCost
		if q, ok := table.Quote(pos.Symbol); ok && q.Price > 0 {
			price = q.Price
		}

		totalCost := pos.Quantity * pos.AverageCost
		currentValue := pos.Quantity * price

		totalCostTRY := totalCost
		currentValueTRY := currentValue
		if pos.Currency == domain.CurrencyUSD {
			totalCostTRY *= table.UsdTry
			currentValueTRY *= table.UsdTry
		}

		profitLoss := currentValueTRY - totalCostTRY
		profitLossPercent := 0.0
		if totalCostTRY > 0 {
			profitLossPercent = profitLoss / totalCostTRY * 100
		}

		valued = append(valued, domain.ValuedPosition{
			Position:          pos,
			CurrentPrice:      price,
			TotalCost:         totalCost,
			CurrentValue:      currentValue,
			TotalCostTRY:      totalCostTRY,
			CurrentValueTRY:   currentValueTRY,
			ProfitLoss:        profitLoss,
			ProfitLossPercent: profitLossPercent,
		})
		totalValueTRY += currentValueTRY
	}

	for i := range valued {
		if totalValueTRY > 0 {
			valued[i].Weight = valued[i].CurrentValueTRY / totalValueTRY * 100
		}
	}

	return valued
}

// Summarize reduces valued positions to portfolio totals.
func (e *Engine) Summarize(valued []domain.ValuedPosition) domain.PortfolioSummary {
	var summary domain.PortfolioSummary
	for _, v := range valued {
		summary.TotalValueTRY += v.CurrentValueTRY
		summary.TotalCostTRY += v.TotalCostTRY
	}
	summary.TotalProfitLoss = summary.TotalValueTRY - summary.TotalCostTRY
	if summary.TotalCostTRY > 0 {
		summary.TotalProfitLossPercent = summary.TotalProfitLoss / summary.TotalCostTRY * 100
	}
	summary.LastUpdated = time.Now()
	return summary
}

// AllocationByCategory groups valued positions into allocation slices for the
// dashboard pie chart. Slice weights are shares of the portfolio TRY total.
func (e *Engine) AllocationByCategory(valued []domain.ValuedPosition) []domain.AllocationSlice {
	order := []domain.Category{
		domain.CategoryCashReserve,
		domain.CategoryUSEquity,
		domain.CategoryCrypto,
	}

	totals := make(map[domain.Category]float64, len(order))
	var totalValueTRY float64
	for _, v := range valued {
		totals[v.Category] += v.CurrentValueTRY
		totalValueTRY += v.CurrentValueTRY
	}

	slices := make([]domain.AllocationSlice, 0, len(order))
	for _, category := range order {
		valueTRY, ok := totals[category]
		if !ok {
			continue
		}
		weight := 0.0
		if totalValueTRY > 0 {
			weight = valueTRY / totalValueTRY * 100
		}
		slices = append(slices, domain.AllocationSlice{
			Category: category,
			ValueTRY: valueTRY,
			Weight:   weight,
		})
	}
	return slices
}
