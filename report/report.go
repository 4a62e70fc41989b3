// Package report records theft reports filed by bike owners.
package report

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/location"
)

// MissingReport is the owner-facing record of a stolen bike. Its presence
// routes the recovery notification to the owner rather than the manufacturer.
type MissingReport struct {
	ID           uuid.UUID `db:"id"`
	BikeID       uuid.UUID `db:"bike_id"`
	Make         string    `db:"make"`
	Model        string    `db:"model"`
	SerialNumber string    `db:"serial_number"`
	MemberEmail  string    `db:"member_email"`
	LastSeenOn   time.Time `db:"last_seen_on"`
	MissingSince time.Time `db:"missing_since"`
	CreatedAt    time.Time `db:"created_at"`
}

// TheftReport is the input for filing a new report.
type TheftReport struct {
	Make         string
	Model        string
	SerialNumber string
	TrackerID    string
	OwnerID      string
	MemberEmail  string
	LastSeenOn   time.Time
	MissingSince time.Time
	// LastKnown is the optional position where the bike was last seen.
	LastKnown *location.Point
}

// Validate checks the report before anything is written.
func (r TheftReport) Validate() error {
	required := []struct{ field, value string }{
		{"make", r.Make},
		{"model", r.Model},
		{"serialNumber", r.SerialNumber},
		{"memberEmail", r.MemberEmail},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apperr.Invalid(f.field, "is required")
		}
	}
	if !strings.Contains(r.MemberEmail, "@") {
		return apperr.Invalid("memberEmail", "is not an email address")
	}
	if err := bike.ValidateTrackerID(r.TrackerID); err != nil {
		return err
	}
	if r.LastSeenOn.IsZero() || r.MissingSince.IsZero() {
		return apperr.Invalid("lastSeenDate", "last seen and missing since dates are required")
	}
	if r.LastKnown != nil {
		if err := r.LastKnown.Validate(); err != nil {
			return err
		}
	}
	return nil
}
