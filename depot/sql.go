package depot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

var ErrNotFound = fmt.Errorf("depot %w", apperr.ErrNotFound)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) List(ctx context.Context) ([]Depot, error) {
	depots := []Depot{}
	err := r.db.SelectContext(ctx, &depots, listQuery)
	return depots, err
}

const listQuery = `SELECT * FROM depots ORDER BY name ASC`

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Depot, error) {
	return Get(ctx, r.db, id)
}

// Get reads a depot through q, which may be a transaction.
func Get(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (Depot, error) {
	var d Depot
	err := sqlx.GetContext(ctx, q, &d, getQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	return d, err
}

const getQuery = `SELECT * FROM depots WHERE id = $1`
