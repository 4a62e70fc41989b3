package note

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Add(ctx context.Context, bikeID uuid.UUID, content string) (Note, error) {
	if strings.TrimSpace(content) == "" {
		return Note{}, apperr.Invalid("content", "is required")
	}
	var n Note
	err := r.db.GetContext(ctx, &n, addQuery, uuid.New(), bikeID, content)
	return n, err
}

const addQuery = `INSERT INTO notes (id, bike_id, content, created_at) VALUES ($1, $2, $3, now()) RETURNING *`

// List returns a bike's notes, newest first.
func (r *Repository) List(ctx context.Context, bikeID uuid.UUID) ([]Note, error) {
	notes := []Note{}
	err := r.db.SelectContext(ctx, &notes, listQuery, bikeID)
	return notes, err
}

const listQuery = `SELECT * FROM notes WHERE bike_id = $1 ORDER BY created_at DESC`
