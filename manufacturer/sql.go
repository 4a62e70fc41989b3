package manufacturer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var ErrNotFound = fmt.Errorf("manufacturer %w", apperr.ErrNotFound)

func (r *Repository) List(ctx context.Context) ([]Manufacturer, error) {
	manufacturers := []Manufacturer{}
	err := r.db.SelectContext(ctx, &manufacturers, listQuery)
	return manufacturers, err
}

const listQuery = "SELECT * FROM manufacturers ORDER BY name ASC"

// GetByName looks a manufacturer up by the make recorded on its bikes.
func (r *Repository) GetByName(ctx context.Context, name string) (Manufacturer, error) {
	var m Manufacturer
	err := r.db.GetContext(ctx, &m, getByNameQuery, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Manufacturer{}, ErrNotFound
		}
		return Manufacturer{}, err
	}
	return m, nil
}

const getByNameQuery = "SELECT * FROM manufacturers WHERE lower(name) = lower($1)"

func (r *Repository) SetStripeID(ctx context.Context, name, stripeID string) error {
	_, err := r.db.ExecContext(ctx, setStripeIDQuery, stripeID, name)
	return err
}

const setStripeIDQuery = "UPDATE manufacturers SET stripe_id = $1 WHERE lower(name) = lower($2)"
