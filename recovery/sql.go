package recovery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/bikerecovery-backend/attempt"
	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/depot"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// Resolve marks a bike as found in a single transaction. guard decides,
// under the bike's row lock, whether the transition is allowed.
func (r *Repository) Resolve(ctx context.Context, req FoundRequest, guard func(bike.Bike) (bike.Status, error)) (Outcome, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Outcome{}, err
	}
	defer tx.Rollback()

	current, err := bike.Lock(ctx, tx, req.BikeID)
	if err != nil {
		return Outcome{}, err
	}

	next, err := guard(current)
	if err != nil {
		return Outcome{}, err
	}

	d, err := depot.Get(ctx, tx, req.DepotID)
	if err != nil {
		return Outcome{}, err
	}

	closed, err := attempt.CloseSuccessful(ctx, tx, req.BikeID, req.At)
	if err != nil {
		return Outcome{}, fmt.Errorf("close attempt: %w", err)
	}

	rec := Recovery{
		ID:      uuid.New(),
		BikeID:  req.BikeID,
		FoundBy: req.FoundBy,
		DepotID: d.ID,
		Notes:   req.Notes,
		FoundAt: req.At,
	}
	err = tx.GetContext(ctx, &rec, insertRecoveryQuery, rec.ID, rec.BikeID, rec.FoundBy, rec.DepotID, rec.Notes, rec.FoundAt)
	if err != nil {
		return Outcome{}, fmt.Errorf("insert recovery: %w", err)
	}

	b, err := bike.SetStatus(ctx, tx, req.BikeID, next, &d.ID)
	if err != nil {
		return Outcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Bike:     b,
		Depot:    d,
		Recovery: rec,
		Attempt:  closed,
	}, nil
}

const insertRecoveryQuery = `
INSERT INTO recoveries (id, bike_id, found_by, depot_id, notes, found_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING *
`

// Recent lists the latest recoveries, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Recovery, error) {
	recoveries := []Recovery{}
	err := r.db.SelectContext(ctx, &recoveries, recentQuery, limit)
	return recoveries, err
}

const recentQuery = `SELECT * FROM recoveries ORDER BY found_at DESC LIMIT $1`
