// Package bike is the registry of tracked bicycles and their current state.
package bike

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/location"
)

// Bike represents a bicycle that has been reported missing or registered for tracking.
type Bike struct {
	// ID is an internal identifier for a bike
	ID           uuid.UUID `db:"id"`
	Make         string    `db:"make"`
	Model        string    `db:"model"`
	SerialNumber string    `db:"serial_number"`
	// TrackerID is the 8 character hex id of the fitted tracker, if any.
	TrackerID sql.NullString `db:"tracker_id"`
	// UserID references the owning user.
	UserID string `db:"user_id"`

	// Location is the last known position; invalid until the first signal.
	Location   pgtype.Point `db:"location"`
	LastSignal sql.NullTime `db:"last_signal"`

	// Status is only written through the recovery state machine.
	Status Status `db:"status"`

	// ReturnDepotID is where the bike was brought after being found.
	ReturnDepotID *uuid.UUID `db:"return_depot_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Position returns the last known coordinate.
func (b Bike) Position() (location.Point, bool) {
	return location.FromPG(b.Location)
}

type Status int

const (
	StatusPending Status = iota
	StatusInvestigating
	StatusResolved
	StatusLost
)

var statusNames = [...]string{"pending", "investigating", "resolved", "lost"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusLost
}

// ParseStatus converts the wire name of a status.
func ParseStatus(v string) (Status, error) {
	for i, name := range statusNames {
		if name == v {
			return Status(i), nil
		}
	}
	return 0, apperr.Invalid("status", fmt.Sprintf("unknown status %q", v))
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s *Status) Scan(i any) error {
	switch v := i.(type) {
	case string:
		parsed, err := ParseStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case []byte:
		return s.Scan(string(v))
	}
	return fmt.Errorf("cannot scan %T into bike status", i)
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

var trackerIDRx = regexp.MustCompile(`^[a-f0-9]{8}$`)

// ValidateTrackerID accepts an empty id (no tracker fitted) or 8 lower-case hex characters.
func ValidateTrackerID(id string) error {
	if id == "" || trackerIDRx.MatchString(id) {
		return nil
	}
	return apperr.Invalid("trackerId", fmt.Sprintf("%q is not a valid tracker ID", id))
}
