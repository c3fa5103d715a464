// Package analytics derives period-over-period performance and concentration
// metrics from the current valuation plus persisted weekly snapshots.
package analytics

import (
	"sort"

	"github.com/portfoyapp/portfoy/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// Diversification labels, mapped from effective asset count via fixed
// thresholds.
const (
	DiversificationHigh    = "high"     // effective assets >= 8
	DiversificationMedium  = "medium"   // >= 5
	DiversificationLow     = "low"      // >= 3
	DiversificationVeryLow = "very_low" // everything else
)

// Top3WarningThreshold flags a portfolio where the three largest positions
// carry more than this share of total weight.
const Top3WarningThreshold = 70.0

// Metrics holds derived portfolio analytics.
type Metrics struct {
	TotalReturnPercent   float64                 `json:"totalReturnPercent"`
	WeeklyChangePercent  float64                 `json:"weeklyChangePercent"`
	HerfindahlIndex      float64                 `json:"herfindahlIndex"`
	EffectiveAssetCount  float64                 `json:"effectiveAssetCount"`
	Diversification      string                  `json:"diversification"`
	Top3WeightPercent    float64                 `json:"top3WeightPercent"`
	ConcentrationWarning bool                    `json:"concentrationWarning"`
	TopPerformers        []domain.ValuedPosition `json:"topPerformers"`
	WorstPerformers      []domain.ValuedPosition `json:"worstPerformers"`
}

// Derive computes analytics from valued positions, the portfolio summary and
// the owner's snapshots ordered oldest first. It is a pure reduction - no
// I/O, fully deterministic given its inputs.
func Derive(valued []domain.ValuedPosition, summary domain.PortfolioSummary, snapshots []domain.Snapshot) Metrics {
	m := Metrics{
		Diversification: DiversificationVeryLow,
		TopPerformers:   []domain.ValuedPosition{},
		WorstPerformers: []domain.ValuedPosition{},
	}

	if summary.TotalCostTRY > 0 {
		m.TotalReturnPercent = (summary.TotalValueTRY - summary.TotalCostTRY) / summary.TotalCostTRY * 100
	}

	// Weekly change compares against the most recent snapshot. No snapshot,
	// or a zero-valued one, means no change to report.
	if len(snapshots) > 0 {
		last := snapshots[len(snapshots)-1]
		if last.TotalValueTRY > 0 {
			m.WeeklyChangePercent = (summary.TotalValueTRY - last.TotalValueTRY) / last.TotalValueTRY * 100
		}
	}

	// Herfindahl-Hirschman concentration index over weight fractions.
	weights := make([]float64, len(valued))
	for i, v := range valued {
		weights[i] = v.Weight / 100
	}
	m.HerfindahlIndex = floats.Dot(weights, weights)
	if m.HerfindahlIndex > 0 {
		m.EffectiveAssetCount = 1 / m.HerfindahlIndex
	}

	switch {
	case m.EffectiveAssetCount >= 8:
		m.Diversification = DiversificationHigh
	case m.EffectiveAssetCount >= 5:
		m.Diversification = DiversificationMedium
	case m.EffectiveAssetCount >= 3:
		m.Diversification = DiversificationLow
	}

	if len(valued) > 0 {
		byWeight := make([]domain.ValuedPosition, len(valued))
		copy(byWeight, valued)
		sort.SliceStable(byWeight, func(i, j int) bool {
			return byWeight[i].Weight > byWeight[j].Weight
		})

		top := byWeight[:min(3, len(byWeight))]
		topWeights := make([]float64, len(top))
		for i, v := range top {
			topWeights[i] = v.Weight
		}
		m.Top3WeightPercent = floats.Sum(topWeights)
		m.ConcentrationWarning = m.Top3WeightPercent > Top3WarningThreshold

		byReturn := make([]domain.ValuedPosition, len(valued))
		copy(byReturn, valued)
		sort.SliceStable(byReturn, func(i, j int) bool {
			return byReturn[i].ProfitLossPercent > byReturn[j].ProfitLossPercent
		})
		n := min(3, len(byReturn))
		m.TopPerformers = byReturn[:n]

		worst := make([]domain.ValuedPosition, n)
		for i := 0; i < n; i++ {
			worst[i] = byReturn[len(byReturn)-1-i]
		}
		m.WorstPerformers = worst
	}

	return m
}
