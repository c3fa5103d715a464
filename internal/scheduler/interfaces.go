package scheduler

import (
	"context"

	"github.com/portfoyapp/portfoy/internal/domain"
)

// Job is a runnable background job, triggerable from the cron schedule or a
// manual API call.
type Job interface {
	Name() string
	Run() error
}

// PositionSource defines the contract for reading positions.
// Used by jobs to enable testing with fakes.
type PositionSource interface {
	GetOwners() ([]string, error)
	GetByOwner(owner string) ([]domain.Position, error)
}

// SnapshotStore defines the contract for persisting snapshots.
type SnapshotStore interface {
	Upsert(snap *domain.Snapshot) (bool, error)
}

// RateSource provides the USD/TRY rate for TRY conversion.
type RateSource interface {
	GetUsdTry(ctx context.Context) float64
}
