package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

var ErrNotFound = fmt.Errorf("missing report %w", apperr.ErrNotFound)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// File registers the stolen bike in pending status together with its missing report.
func (r *Repository) File(ctx context.Context, tr TheftReport) (bike.Bike, MissingReport, error) {
	if err := tr.Validate(); err != nil {
		return bike.Bike{}, MissingReport{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return bike.Bike{}, MissingReport{}, err
	}
	defer tx.Rollback()

	b := bike.Bike{
		Make:         tr.Make,
		Model:        tr.Model,
		SerialNumber: tr.SerialNumber,
		TrackerID:    sql.NullString{String: tr.TrackerID, Valid: tr.TrackerID != ""},
		UserID:       tr.OwnerID,
		Status:       bike.StatusPending,
	}
	if tr.LastKnown != nil {
		b.Location = tr.LastKnown.PG()
	}
	if err := bike.Insert(ctx, tx, &b); err != nil {
		return bike.Bike{}, MissingReport{}, fmt.Errorf("insert bike: %w", err)
	}

	var mr MissingReport
	err = tx.GetContext(ctx, &mr, fileQuery,
		uuid.New(), b.ID, tr.Make, tr.Model, tr.SerialNumber, tr.MemberEmail, tr.LastSeenOn, tr.MissingSince)
	if err != nil {
		return bike.Bike{}, MissingReport{}, fmt.Errorf("insert missing report: %w", err)
	}

	return b, mr, tx.Commit()
}

const fileQuery = `
INSERT INTO missing_reports (id, bike_id, make, model, serial_number, member_email, last_seen_on, missing_since, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
RETURNING *
`

func (r *Repository) GetByBikeID(ctx context.Context, bikeID uuid.UUID) (MissingReport, error) {
	var mr MissingReport
	err := r.db.GetContext(ctx, &mr, getByBikeIDQuery, bikeID)
	if errors.Is(err, sql.ErrNoRows) {
		return mr, ErrNotFound
	}
	return mr, err
}

const getByBikeIDQuery = `SELECT * FROM missing_reports WHERE bike_id = $1 ORDER BY created_at DESC LIMIT 1`
