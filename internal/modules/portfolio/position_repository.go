// Package portfolio holds the position storage and the valuation-facing
// portfolio service.
package portfolio

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/portfoyapp/portfoy/internal/domain"
	"github.com/rs/zerolog"
)

// Schema for the positions table. Idempotent, applied on startup.
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	id           TEXT PRIMARY KEY,
	owner        TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	kind         TEXT NOT NULL,
	category     TEXT NOT NULL,
	quantity     REAL NOT NULL CHECK (quantity >= 0),
	average_cost REAL NOT NULL CHECK (average_cost >= 0),
	currency     TEXT NOT NULL,
	created_at   TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_positions_owner ON positions(owner);
`

// PositionRepository handles position database operations.
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository.
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

const positionColumns = `id, owner, symbol, name, kind, category, quantity, average_cost, currency`

// GetByOwner returns all positions held by an owner, in insertion order.
func (r *PositionRepository) GetByOwner(owner string) ([]domain.Position, error) {
	query := fmt.Sprintf(`SELECT %s FROM positions WHERE owner = ? ORDER BY created_at, id`, positionColumns)

	rows, err := r.db.Query(query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// GetOwners returns every distinct owner that currently holds positions.
// The weekly snapshot job iterates this set.
func (r *PositionRepository) GetOwners() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT owner FROM positions ORDER BY owner`)
	if err != nil {
		return nil, fmt.Errorf("failed to query owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, owner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owners: %w", err)
	}

	return owners, nil
}

// Get returns a single position by id.
func (r *PositionRepository) Get(id string) (*domain.Position, error) {
	query := fmt.Sprintf(`SELECT %s FROM positions WHERE id = ?`, positionColumns)

	row := r.db.QueryRow(query, id)
	pos, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s: %w", id, err)
	}
	return &pos, nil
}

// Insert stores a new position. A missing id is generated.
func (r *PositionRepository) Insert(pos *domain.Position) error {
	if pos.ID == "" {
		pos.ID = uuid.NewString()
	}

	_, err := r.db.Exec(`
		INSERT INTO positions (id, owner, symbol, name, kind, category, quantity, average_cost, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.ID, pos.Owner, pos.Symbol, pos.Name, string(pos.Kind), string(pos.Category),
		pos.Quantity, pos.AverageCost, pos.Currency,
	)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}

	r.log.Debug().Str("id", pos.ID).Str("symbol", pos.Symbol).Msg("Position inserted")
	return nil
}

// Update replaces an existing position's editable fields.
func (r *PositionRepository) Update(pos *domain.Position) error {
	result, err := r.db.Exec(`
		UPDATE positions
		SET symbol = ?, name = ?, kind = ?, category = ?, quantity = ?, average_cost = ?, currency = ?
		WHERE id = ?`,
		pos.Symbol, pos.Name, string(pos.Kind), string(pos.Category),
		pos.Quantity, pos.AverageCost, pos.Currency, pos.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update position %s: %w", pos.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("position %s not found", pos.ID)
	}

	return nil
}

// Delete removes a position by id.
func (r *PositionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM positions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete position %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("position %s not found", id)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(s scanner) (domain.Position, error) {
	var pos domain.Position
	var kind, category string
	err := s.Scan(
		&pos.ID, &pos.Owner, &pos.Symbol, &pos.Name, &kind, &category,
		&pos.Quantity, &pos.AverageCost, &pos.Currency,
	)
	if err != nil {
		return pos, err
	}
	pos.Kind = domain.InstrumentKind(kind)
	pos.Category = domain.Category(category)
	return pos, nil
}
