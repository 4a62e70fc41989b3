package attempt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

var (
	ErrNoOpenAttempt = fmt.Errorf("open attempt %w", apperr.ErrNotFound)
	ErrContended     = fmt.Errorf("open attempt %w", apperr.ErrConflict)
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// Start opens an attempt for the bike unless one is already open, in which
// case the existing attempt is returned unchanged. The bike row is locked for
// the whole transaction and checked with pursuable, so a bike resolved or
// lost concurrently never ends up with an open attempt.
func (r *Repository) Start(ctx context.Context, bikeID uuid.UUID, userID string, at time.Time, pursuable func(bike.Bike) error) (Attempt, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Attempt{}, false, err
	}
	defer tx.Rollback()

	b, err := bike.Lock(ctx, tx, bikeID)
	if err != nil {
		return Attempt{}, false, err
	}
	if err := pursuable(b); err != nil {
		return Attempt{}, false, err
	}

	var a Attempt
	created := true
	err = tx.GetContext(ctx, &a, startQuery, uuid.New(), bikeID, userID, at)
	if errors.Is(err, sql.ErrNoRows) {
		// Holding the bike lock, the conflicting open attempt cannot be
		// closed before we read it.
		created = false
		err = tx.GetContext(ctx, &a, openQuery, bikeID)
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, false, ErrContended
		}
	}
	if err != nil {
		return Attempt{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return Attempt{}, false, err
	}
	return a, created, nil
}

const startQuery = `
INSERT INTO attempts (id, bike_id, user_id, status, start_time)
VALUES ($1, $2, $3, 'open', $4)
ON CONFLICT (bike_id) WHERE status = 'open' DO NOTHING
RETURNING *
`

// Open returns the bike's open attempt.
func (r *Repository) Open(ctx context.Context, bikeID uuid.UUID) (Attempt, error) {
	var a Attempt
	err := r.db.GetContext(ctx, &a, openQuery, bikeID)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNoOpenAttempt
	}
	return a, err
}

const openQuery = `SELECT * FROM attempts WHERE bike_id = $1 AND status = 'open'`

// Cancel closes the bike's open attempt with a reason.
func (r *Repository) Cancel(ctx context.Context, bikeID uuid.UUID, reason Reason, at time.Time) (Attempt, error) {
	var a Attempt
	err := r.db.GetContext(ctx, &a, cancelQuery, bikeID, reason, at)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNoOpenAttempt
	}
	return a, err
}

const cancelQuery = `
UPDATE attempts SET status = 'cancelled', cancellation_reason = $2, end_time = GREATEST($3, start_time)
WHERE bike_id = $1 AND status = 'open'
RETURNING *
`

// CloseSuccessful marks the bike's open attempt, if any, as successful inside tx.
// It returns nil when no attempt was open.
func CloseSuccessful(ctx context.Context, tx *sqlx.Tx, bikeID uuid.UUID, at time.Time) (*Attempt, error) {
	var a Attempt
	err := tx.GetContext(ctx, &a, closeSuccessfulQuery, bikeID, at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const closeSuccessfulQuery = `
UPDATE attempts SET status = 'successful', end_time = GREATEST($2, start_time)
WHERE bike_id = $1 AND status = 'open'
RETURNING *
`

// ListByBike returns every attempt for a bike, newest first.
func (r *Repository) ListByBike(ctx context.Context, bikeID uuid.UUID) ([]Attempt, error) {
	attempts := []Attempt{}
	err := r.db.SelectContext(ctx, &attempts, listByBikeQuery, bikeID)
	return attempts, err
}

const listByBikeQuery = `SELECT * FROM attempts WHERE bike_id = $1 ORDER BY start_time DESC`
