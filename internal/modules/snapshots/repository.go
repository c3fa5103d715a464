// Package snapshots persists weekly portfolio captures, keyed by owner and
// ISO calendar week.
package snapshots

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Schema for the snapshots table. Idempotent, applied on startup.
// The unique index enforces one snapshot per (owner, week).
const Schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id              TEXT PRIMARY KEY,
	owner           TEXT NOT NULL,
	total_value_try REAL NOT NULL,
	week_number     INTEGER NOT NULL,
	positions       BLOB NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_owner_week ON snapshots(owner, week_number);
`

// Repository handles snapshot database operations. Position valuations are
// stored as a msgpack blob - they are an archival record, not queryable rows.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// GetByOwner returns an owner's snapshots ordered oldest first, which is the
// order the analytics derivation expects.
func (r *Repository) GetByOwner(owner string) ([]domain.Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, owner, total_value_try, week_number, positions, created_at
		FROM snapshots WHERE owner = ? ORDER BY created_at, week_number`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.Snapshot
	for rows.Next() {
		var (
			snap      domain.Snapshot
			blob      []byte
			createdAt string
		)
		if err := rows.Scan(&snap.ID, &snap.Owner, &snap.TotalValueTRY, &snap.WeekNumber, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := msgpack.Unmarshal(blob, &snap.Positions); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot positions: %w", err)
		}
		if snap.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot timestamp: %w", err)
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

// Upsert stores a snapshot keyed by (owner, week). When a snapshot already
// exists for that week its value and positions are updated in place - the
// weekly job is idempotent. Returns true when a new row was inserted.
func (r *Repository) Upsert(snap *domain.Snapshot) (bool, error) {
	blob, err := msgpack.Marshal(snap.Positions)
	if err != nil {
		return false, fmt.Errorf("failed to encode snapshot positions: %w", err)
	}

	var existingID string
	err = r.db.QueryRow(
		`SELECT id FROM snapshots WHERE owner = ? AND week_number = ?`,
		snap.Owner, snap.WeekNumber,
	).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		if snap.ID == "" {
			snap.ID = uuid.NewString()
		}
		if snap.CreatedAt.IsZero() {
			snap.CreatedAt = time.Now()
		}
		_, err = r.db.Exec(`
			INSERT INTO snapshots (id, owner, total_value_try, week_number, positions, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			snap.ID, snap.Owner, snap.TotalValueTRY, snap.WeekNumber, blob,
			snap.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert snapshot: %w", err)
		}
		r.log.Debug().Str("owner", snap.Owner).Int("week", snap.WeekNumber).Msg("Snapshot inserted")
		return true, nil

	case err != nil:
		return false, fmt.Errorf("failed to look up snapshot: %w", err)

	default:
		snap.ID = existingID
		_, err = r.db.Exec(`
			UPDATE snapshots SET total_value_try = ?, positions = ? WHERE id = ?`,
			snap.TotalValueTRY, blob, existingID,
		)
		if err != nil {
			return false, fmt.Errorf("failed to update snapshot: %w", err)
		}
		r.log.Debug().Str("owner", snap.Owner).Int("week", snap.WeekNumber).Msg("Snapshot updated")
		return false, nil
	}
}
