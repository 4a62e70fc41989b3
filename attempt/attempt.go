package attempt

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

// Attempt is one agent's pursuit of one bike.
type Attempt struct {
	ID                 uuid.UUID    `db:"id" json:"id"`
	BikeID             uuid.UUID    `db:"bike_id" json:"bikeId"`
	UserID             string       `db:"user_id" json:"userId"`
	Status             Status       `db:"status" json:"status"`
	StartTime          time.Time    `db:"start_time" json:"startTime"`
	EndTime            sql.NullTime `db:"end_time" json:"-"`
	CancellationReason *Reason      `db:"cancellation_reason" json:"cancellationReason,omitempty"`
}

type Status string

const (
	StatusOpen       Status = "open"
	StatusSuccessful Status = "successful"
	StatusCancelled  Status = "cancelled"
)

// Reason explains why an agent gave up on a bike.
type Reason int

const (
	ReasonBikeNotThere Reason = iota
	ReasonBikeStartedMoving
	ReasonSwitchedTarget
)

var reasonNames = [...]string{"bike-not-there", "bike-started-moving", "switched-target"}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("reason(%d)", int(r))
	}
	return reasonNames[r]
}

func ParseReason(v string) (Reason, error) {
	for i, name := range reasonNames {
		if name == v {
			return Reason(i), nil
		}
	}
	return 0, apperr.Invalid("reason", fmt.Sprintf("%q is not one of bike-not-there, bike-started-moving, switched-target", v))
}

func (r Reason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Reason) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseReason(v)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r *Reason) Scan(i any) error {
	switch v := i.(type) {
	case string:
		parsed, err := ParseReason(v)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	case []byte:
		return r.Scan(string(v))
	}
	return fmt.Errorf("cannot scan %T into cancellation reason", i)
}

func (r Reason) Value() (driver.Value, error) {
	return r.String(), nil
}
