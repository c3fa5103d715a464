// Package scheduler contains the background jobs and their contracts.
package scheduler

import (
	"context"
	"time"

	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/rs/zerolog"
)

// SnapshotJob captures one portfolio snapshot per owner per ISO week.
//
// The capture deliberately values positions at average cost rather than live
// prices: the archival record tracks contributed capital week over week and
// must not depend on price feeds being up at capture time. Only the USD/TRY
// rate is fetched live (and that source falls back to a constant).
type SnapshotJob struct {
	positions PositionSource
	store     SnapshotStore
	rates     RateSource
	now       func() time.Time
	log       zerolog.Logger
}

// NewSnapshotJob creates a new weekly snapshot job.
func NewSnapshotJob(
	positions PositionSource,
	store SnapshotStore,
	rates RateSource,
	log zerolog.Logger,
) *SnapshotJob {
	return &SnapshotJob{
		positions: positions,
		store:     store,
		rates:     rates,
		now:       time.Now,
		log:       log.With().Str("job", "weekly_snapshot").Logger(),
	}
}

// Name returns the job name.
func (j *SnapshotJob) Name() string {
	return "weekly_snapshot"
}

// Run captures a snapshot for every owner currently holding positions.
// Running twice within the same ISO week updates the existing snapshots
// instead of duplicating them. Per-owner failures are logged and skipped so
// one bad owner cannot abort everyone else's capture.
func (j *SnapshotJob) Run() error {
	ctx := context.Background()

	owners, err := j.positions.GetOwners()
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		j.log.Info().Msg("No owners with positions, nothing to snapshot")
		return nil
	}

	usdTry := j.rates.GetUsdTry(ctx)
	now := j.now()
	_, week := now.ISOWeek()

	created := 0
	for _, owner := range owners {
		positions, err := j.positions.GetByOwner(owner)
		if err != nil {
			j.log.Error().Err(err).Str("owner", owner).Msg("Failed to load positions, skipping owner")
			continue
		}
		if len(positions) == 0 {
			continue
		}

		snap := buildSnapshot(owner, positions, usdTry, week, now)
		inserted, err := j.store.Upsert(snap)
		if err != nil {
			j.log.Error().Err(err).Str("owner", owner).Msg("Failed to store snapshot")
			continue
		}
		if inserted {
			created++
		}
	}

	j.log.Info().
		Int("owners", len(owners)).
		Int("created", created).
		Int("week", week).
		Msg("Weekly snapshot run completed")

	return nil
}

// buildSnapshot values positions at average cost and converts USD holdings
// to TRY at the given rate.
func buildSnapshot(owner string, positions []domain.Position, usdTry float64, week int, now time.Time) *domain.Snapshot {
	snapPositions := make([]domain.SnapshotPosition, 0, len(positions))
	var totalTRY float64

	for _, pos := range positions {
		value := pos.Quantity * pos.AverageCost
		valueTRY := value
		if pos.Currency == domain.CurrencyUSD {
			valueTRY *= usdTry
		}
		totalTRY += valueTRY

		snapPositions = append(snapPositions, domain.SnapshotPosition{
			Symbol:      pos.Symbol,
			Name:        pos.Name,
			Kind:        pos.Kind,
			Category:    pos.Category,
			Quantity:    pos.Quantity,
			AverageCost: pos.AverageCost,
			Currency:    pos.Currency,
			ValueTRY:    valueTRY,
		})
	}

	return &domain.Snapshot{
		Owner:         owner,
		TotalValueTRY: totalTRY,
		WeekNumber:    week,
		Positions:     snapPositions,
		CreatedAt:     now,
	}
}
