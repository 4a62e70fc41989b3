// Package location holds the position history of tracked bikes and the queue
// of simulated position reports waiting to be ingested.
package location

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

// Point is a WGS84 coordinate. It is stored as a postgres point with X as
// longitude and Y as latitude.
type Point struct {
	Lng float64 `json:"longitude"`
	Lat float64 `json:"latitude"`
}

// Validate checks that both components are finite and within range.
func (p Point) Validate() error {
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return apperr.Invalid("longitude", "must be a finite number")
	}
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return apperr.Invalid("latitude", "must be a finite number")
	}
	if p.Lng < -180 || p.Lng > 180 {
		return apperr.Invalid("longitude", fmt.Sprintf("%v is outside [-180, 180]", p.Lng))
	}
	if p.Lat < -90 || p.Lat > 90 {
		return apperr.Invalid("latitude", fmt.Sprintf("%v is outside [-90, 90]", p.Lat))
	}
	return nil
}

// PG converts the point into its database representation.
func (p Point) PG() pgtype.Point {
	return pgtype.Point{P: pgtype.Vec2{X: p.Lng, Y: p.Lat}, Valid: true}
}

// FromPG converts a database point. The boolean is false for a NULL point.
func FromPG(p pgtype.Point) (Point, bool) {
	if !p.Valid {
		return Point{}, false
	}
	return Point{Lng: p.P.X, Lat: p.P.Y}, true
}

// Sample is one historical position fix. Samples are append-only.
type Sample struct {
	ID         uuid.UUID    `db:"id"`
	BikeID     uuid.UUID    `db:"bike_id"`
	Location   pgtype.Point `db:"location"`
	RecordedAt time.Time    `db:"recorded_at"`
}

// Point returns the sample's coordinate.
func (s Sample) Point() Point {
	p, _ := FromPG(s.Location)
	return p
}

// PendingUpdate is a queued simulated position report. It is consumed exactly
// once by the poller and never updated in place.
type PendingUpdate struct {
	ID         uuid.UUID    `db:"id"`
	Seq        int64        `db:"seq"`
	BikeID     uuid.UUID    `db:"bike_id"`
	Location   pgtype.Point `db:"location"`
	EnqueuedAt time.Time    `db:"enqueued_at"`
}

// Point returns the reported coordinate.
func (u PendingUpdate) Point() Point {
	p, _ := FromPG(u.Location)
	return p
}
