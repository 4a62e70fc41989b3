package manufacturer

import (
	"database/sql"

	"github.com/google/uuid"
)

// Manufacturer is a B2B client whose fleet bikes are tracked. Recoveries of
// bikes without a private owner report are notified to ContactEmail.
type Manufacturer struct {
	ID           uuid.UUID      `db:"id"`
	Name         string         `db:"name"`
	ContactEmail sql.NullString `db:"contact_email"`
	StripeID     sql.NullString `db:"stripe_id"`
}
