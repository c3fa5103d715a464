package portfolio

import (
	"context"
	"fmt"

	"github.com/portfoyapp/portfoy/internal/analytics"
	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/portfoyapp/portfoy/internal/prices"
	"github.com/portfoyapp/portfoy/internal/valuation"
	"github.com/rs/zerolog"
)

// PriceSource is the slice of the price cache the service needs.
type PriceSource interface {
	GetOrRefresh(ctx context.Context, symbols []string) (prices.Result, error)
}

// SnapshotReader provides an owner's snapshots ordered oldest first.
type SnapshotReader interface {
	GetByOwner(owner string) ([]domain.Snapshot, error)
}

// Valuation bundles everything the dashboard needs for one owner.
type Valuation struct {
	Positions  []domain.ValuedPosition  `json:"positions"`
	Summary    domain.PortfolioSummary  `json:"summary"`
	Allocation []domain.AllocationSlice `json:"allocation"`
	UsdTry     float64                  `json:"usdTry"`
	Cached     bool                     `json:"cached"`
	Stale      bool                     `json:"stale,omitempty"`
}

// Service computes valuations and analytics for an owner's portfolio.
type Service struct {
	positionRepo *PositionRepository
	priceSource  PriceSource
	engine       *valuation.Engine
	snapshots    SnapshotReader
	log          zerolog.Logger
}

// NewService creates a portfolio service.
func NewService(
	positionRepo *PositionRepository,
	priceSource PriceSource,
	engine *valuation.Engine,
	snapshots SnapshotReader,
	log zerolog.Logger,
) *Service {
	return &Service{
		positionRepo: positionRepo,
		priceSource:  priceSource,
		engine:       engine,
		snapshots:    snapshots,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// Valuation prices the owner's positions against the shared price table and
// computes per-position and portfolio figures. The dashboard renders from
// whatever table is available - fresh, cached or stale.
func (s *Service) Valuation(ctx context.Context, owner string) (*Valuation, error) {
	positions, err := s.positionRepo.GetByOwner(owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	symbols := make([]string, 0, len(positions))
	for _, pos := range positions {
		symbols = append(symbols, pos.Symbol)
	}

	result, err := s.priceSource.GetOrRefresh(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}

	valued := s.engine.Value(positions, result.Table)

	return &Valuation{
		Positions:  valued,
		Summary:    s.engine.Summarize(valued),
		Allocation: s.engine.AllocationByCategory(valued),
		UsdTry:     result.Table.UsdTry,
		Cached:     result.Cached,
		Stale:      result.Stale,
	}, nil
}

// Analytics derives performance and concentration metrics for an owner from
// the current valuation and their snapshot history.
func (s *Service) Analytics(ctx context.Context, owner string) (*analytics.Metrics, error) {
	val, err := s.Valuation(ctx, owner)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.snapshots.GetByOwner(owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}

	metrics := analytics.Derive(val.Positions, val.Summary, snapshots)
	return &metrics, nil
}
