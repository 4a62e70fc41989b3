package bike

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/location"
)

var (
	ErrNotFound = fmt.Errorf("bike %w", apperr.ErrNotFound)
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Insert creates a bike using q so it can take part in a wider transaction.
func Insert(ctx context.Context, q sqlx.ExtContext, b *Bike) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return sqlx.GetContext(ctx, q, b, insertQuery,
		b.ID, b.Make, b.Model, b.SerialNumber, b.TrackerID, b.UserID, b.Location, b.LastSignal, b.Status)
}

const insertQuery = `
INSERT INTO bikes (id, make, model, serial_number, tracker_id, user_id, location, last_signal, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
RETURNING *
`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Bike, error) {
	var b Bike
	err := r.db.GetContext(ctx, &b, getQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

const getQuery = `SELECT * FROM bikes WHERE id = $1`

// GetBySerialNumber returns the most recently registered bike with the serial number.
func (r *Repository) GetBySerialNumber(ctx context.Context, serial string) (Bike, error) {
	var b Bike
	err := r.db.GetContext(ctx, &b, getBySerialQuery, serial)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

const getBySerialQuery = `SELECT * FROM bikes WHERE serial_number = $1 ORDER BY created_at DESC LIMIT 1`

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status *Status
	Makes  []string
}

func (r *Repository) List(ctx context.Context, f Filter) ([]Bike, error) {
	var status *string
	if f.Status != nil {
		s := f.Status.String()
		status = &s
	}
	var makes []string
	if len(f.Makes) > 0 {
		makes = f.Makes
	}

	bikes := []Bike{}
	err := r.db.SelectContext(ctx, &bikes, listQuery, status, makes)
	return bikes, err
}

const listQuery = `
SELECT * FROM bikes
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text[] IS NULL OR make = ANY($2))
ORDER BY created_at ASC
`

// Lock reads a bike inside tx and holds its row lock until tx ends.
func Lock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (Bike, error) {
	var b Bike
	err := tx.GetContext(ctx, &b, lockQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

const lockQuery = `SELECT * FROM bikes WHERE id = $1 FOR UPDATE`

// SetStatus writes a new status (and optionally the return depot) inside tx.
func SetStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status Status, depot *uuid.UUID) (Bike, error) {
	var b Bike
	err := tx.GetContext(ctx, &b, setStatusQuery, id, status, depot)
	return b, err
}

const setStatusQuery = `
UPDATE bikes SET status = $2, return_depot_id = COALESCE($3, return_depot_id), updated_at = now()
WHERE id = $1
RETURNING *
`

// RecordFix atomically appends a location sample and moves the bike's current
// position to it. advance decides the bike's status after the signal.
func (r *Repository) RecordFix(ctx context.Context, id uuid.UUID, p location.Point, at time.Time, advance func(Status) Status) (Bike, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Bike{}, err
	}
	defer tx.Rollback()

	current, err := Lock(ctx, tx, id)
	if err != nil {
		return Bike{}, err
	}

	sample := location.Sample{BikeID: id, Location: p.PG(), RecordedAt: at}
	if err := location.Append(ctx, tx, &sample); err != nil {
		return Bike{}, fmt.Errorf("append sample: %w", err)
	}

	var b Bike
	err = tx.GetContext(ctx, &b, recordFixQuery, id, sample.Location, at, advance(current.Status))
	if err != nil {
		return Bike{}, err
	}

	return b, tx.Commit()
}

const recordFixQuery = `
UPDATE bikes SET location = $2, last_signal = $3, status = $4, updated_at = now()
WHERE id = $1
RETURNING *
`

// Transition applies a status change decided by guard while holding the bike's lock.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, guard func(Bike) (Status, error)) (Bike, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Bike{}, err
	}
	defer tx.Rollback()

	current, err := Lock(ctx, tx, id)
	if err != nil {
		return Bike{}, err
	}

	next, err := guard(current)
	if err != nil {
		return Bike{}, err
	}

	b, err := SetStatus(ctx, tx, id, next, nil)
	if err != nil {
		return Bike{}, err
	}
	return b, tx.Commit()
}

// Statistics summarises the registry for dashboards.
type Statistics struct {
	TotalBikes     int         `json:"totalBikes"`
	Investigating  int         `json:"investigating"`
	Resolved       int         `json:"resolved"`
	Lost           int         `json:"lost"`
	RecoveryRate   float64     `json:"recoveryRate"`
	RecentSignal   int         `json:"recentSignal"`
	ModerateSignal int         `json:"moderateSignal"`
	OldSignal      int         `json:"oldSignal"`
	TopMakes       []MakeCount `json:"topManufacturers"`
}

type MakeCount struct {
	Name  string `db:"make" json:"name"`
	Count int    `db:"count" json:"count"`
}

func (r *Repository) Statistics(ctx context.Context, now time.Time) (Statistics, error) {
	var counts struct {
		Total         int `db:"total"`
		Investigating int `db:"investigating"`
		Resolved      int `db:"resolved"`
		Lost          int `db:"lost"`
		Recent        int `db:"recent"`
		Moderate      int `db:"moderate"`
		Old           int `db:"old"`
	}
	err := r.db.GetContext(ctx, &counts, statisticsQuery, now.Add(-time.Hour), now.Add(-24*time.Hour))
	if err != nil {
		return Statistics{}, err
	}

	top := []MakeCount{}
	if err := r.db.SelectContext(ctx, &top, topMakesQuery); err != nil {
		return Statistics{}, err
	}

	return Statistics{
		TotalBikes:     counts.Total,
		Investigating:  counts.Investigating,
		Resolved:       counts.Resolved,
		Lost:           counts.Lost,
		RecoveryRate:   RecoveryRate(counts.Resolved, counts.Investigating),
		RecentSignal:   counts.Recent,
		ModerateSignal: counts.Moderate,
		OldSignal:      counts.Old,
		TopMakes:       top,
	}, nil
}

// RecoveryRate is the percentage of reported bikes that were resolved.
func RecoveryRate(resolved, investigating int) float64 {
	if resolved+investigating == 0 {
		return 0
	}
	return float64(resolved) / float64(resolved+investigating) * 100
}

const statisticsQuery = `
SELECT
  count(*) AS total,
  count(*) FILTER (WHERE status = 'investigating') AS investigating,
  count(*) FILTER (WHERE status = 'resolved') AS resolved,
  count(*) FILTER (WHERE status = 'lost') AS lost,
  count(*) FILTER (WHERE last_signal >= $1) AS recent,
  count(*) FILTER (WHERE last_signal < $1 AND last_signal >= $2) AS moderate,
  count(*) FILTER (WHERE last_signal < $2) AS old
FROM bikes
`

const topMakesQuery = `SELECT make, count(*) AS count FROM bikes GROUP BY make ORDER BY count DESC, make ASC LIMIT 5`
