package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

var (
	ErrUnknownBike = fmt.Errorf("bike %w", apperr.ErrNotFound)
	ErrNotClaimed  = fmt.Errorf("pending update %w", apperr.ErrNotFound)
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Append writes a sample using q, which is usually the transaction that also
// updates the bike's current position.
func Append(ctx context.Context, q sqlx.ExtContext, s *Sample) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return sqlx.GetContext(ctx, q, s, appendQuery, s.ID, s.BikeID, s.Location, s.RecordedAt)
}

const appendQuery = `
INSERT INTO location_samples (id, bike_id, location, recorded_at)
VALUES ($1, $2, $3, $4)
RETURNING *
`

// All returns every sample for a bike, oldest first.
func (r *Repository) All(ctx context.Context, bikeID uuid.UUID) ([]Sample, error) {
	samples := []Sample{}
	err := r.db.SelectContext(ctx, &samples, allQuery, bikeID)
	return samples, err
}

const allQuery = `SELECT * FROM location_samples WHERE bike_id = $1 ORDER BY recorded_at ASC, id ASC`

// History returns the samples of a bike recorded within [from, to], oldest
// first. A nil bound leaves that side open.
func (r *Repository) History(ctx context.Context, bikeID uuid.UUID, from, to *time.Time) ([]Sample, error) {
	samples := []Sample{}
	err := r.db.SelectContext(ctx, &samples, historyQuery, bikeID, from, to)
	return samples, err
}

const historyQuery = `
SELECT * FROM location_samples
WHERE bike_id = $1
  AND ($2::timestamptz IS NULL OR recorded_at >= $2)
  AND ($3::timestamptz IS NULL OR recorded_at <= $3)
ORDER BY recorded_at ASC, id ASC
`

// Enqueue stores a simulated position report for the poller. The coordinate
// is not validated here; ingestion rejects malformed reports.
func (r *Repository) Enqueue(ctx context.Context, bikeID uuid.UUID, p Point, at time.Time) (PendingUpdate, error) {
	var u PendingUpdate
	err := r.db.GetContext(ctx, &u, enqueueQuery, uuid.New(), bikeID, p.PG(), at)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return PendingUpdate{}, ErrUnknownBike
		}
		return PendingUpdate{}, err
	}
	return u, nil
}

const foreignKeyViolation = "23503"

const enqueueQuery = `
INSERT INTO pending_updates (id, bike_id, location, enqueued_at)
VALUES ($1, $2, $3, $4)
RETURNING *
`

// Pending lists queued updates in the order they were enqueued.
func (r *Repository) Pending(ctx context.Context) ([]PendingUpdate, error) {
	updates := []PendingUpdate{}
	err := r.db.SelectContext(ctx, &updates, pendingQuery)
	return updates, err
}

const pendingQuery = `SELECT * FROM pending_updates ORDER BY enqueued_at ASC, seq ASC`

// Claim removes an update from the queue and returns it. Only one caller can
// claim a given update; the others get ErrNotClaimed.
func (r *Repository) Claim(ctx context.Context, id uuid.UUID) (PendingUpdate, error) {
	var u PendingUpdate
	err := r.db.GetContext(ctx, &u, claimQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingUpdate{}, ErrNotClaimed
	}
	return u, err
}

const claimQuery = `DELETE FROM pending_updates WHERE id = $1 RETURNING *`
