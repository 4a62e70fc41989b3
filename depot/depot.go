package depot

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Depot is a return location where recovered bikes are dropped off for
// collection by their owner or manufacturer.
type Depot struct {
	ID           uuid.UUID    `db:"id"`
	Name         string       `db:"name"`
	Address      string       `db:"address"`
	OpeningHours string       `db:"opening_hours"`
	Location     pgtype.Point `db:"location"`
}
