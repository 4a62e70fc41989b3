// Package recovery owns the bike status lifecycle and the attempt lifecycle
// that runs alongside it.
package recovery

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerecovery-backend/attempt"
	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/depot"
	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

// Recovery records who returned a bike and where it was dropped off.
type Recovery struct {
	ID      uuid.UUID `db:"id" json:"id"`
	BikeID  uuid.UUID `db:"bike_id" json:"bikeId"`
	FoundBy string    `db:"found_by" json:"foundBy"`
	DepotID uuid.UUID `db:"depot_id" json:"depotId"`
	Notes   string    `db:"notes" json:"notes,omitempty"`
	FoundAt time.Time `db:"found_at" json:"foundAt"`
}

// FoundRequest describes a bike being handed in at a depot.
type FoundRequest struct {
	BikeID  uuid.UUID
	DepotID uuid.UUID
	FoundBy string
	Notes   string
	At      time.Time
}

// Outcome is everything written when a bike is resolved.
type Outcome struct {
	Bike     bike.Bike
	Depot    depot.Depot
	Recovery Recovery
	// Attempt is the attempt closed as successful, nil if none was open.
	Attempt *attempt.Attempt
}

func invalidState(action string, s bike.Status) error {
	return fmt.Errorf("cannot %s a bike that is %s: %w", action, s, apperr.ErrInvalidState)
}

// SignalReceived returns the status a bike takes once it reports a position.
// Only pending bikes move; everything else keeps its status.
func SignalReceived(s bike.Status) bike.Status {
	if s == bike.StatusPending {
		return bike.StatusInvestigating
	}
	return s
}

// Investigate is the guard for staff opening an investigation by hand.
func Investigate(b bike.Bike) (bike.Status, error) {
	if b.Status != bike.StatusPending {
		return b.Status, invalidState("investigate", b.Status)
	}
	return bike.StatusInvestigating, nil
}

// Found is the guard for resolving a bike.
func Found(b bike.Bike) (bike.Status, error) {
	if b.Status != bike.StatusInvestigating {
		return b.Status, invalidState("mark as found", b.Status)
	}
	return bike.StatusResolved, nil
}

// Lost is the guard for giving up on a bike.
func Lost(b bike.Bike) (bike.Status, error) {
	if b.Status != bike.StatusInvestigating {
		return b.Status, invalidState("mark as lost", b.Status)
	}
	return bike.StatusLost, nil
}

// Pursuable reports whether an agent may start an attempt on the bike.
func Pursuable(b bike.Bike) error {
	if b.Status.Terminal() {
		return invalidState("pursue", b.Status)
	}
	return nil
}
