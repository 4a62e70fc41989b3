package note

import (
	"time"

	"github.com/google/uuid"
)

// Note is a free-text case note left by staff on a bike.
type Note struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BikeID    uuid.UUID `db:"bike_id" json:"bikeId"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
