package attempt

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

func TestParseReason(t *testing.T) {
	for _, name := range []string{"bike-not-there", "bike-started-moving", "switched-target"} {
		r, err := ParseReason(name)
		require.NoError(t, err)
		assert.Equal(t, name, r.String())
	}

	_, err := ParseReason("Bike is not there")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	field, _ := apperr.Field(err)
	assert.Equal(t, "reason", field)
}

func TestReasonJSON(t *testing.T) {
	b, err := json.Marshal(ReasonSwitchedTarget)
	require.NoError(t, err)
	assert.Equal(t, `"switched-target"`, string(b))

	var r Reason
	require.NoError(t, json.Unmarshal([]byte(`"bike-started-moving"`), &r))
	assert.Equal(t, ReasonBikeStartedMoving, r)
}

func TestAttemptJSONOmitsReasonWhenOpen(t *testing.T) {
	b, err := json.Marshal(Attempt{Status: StatusOpen})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "cancellationReason")
	assert.Contains(t, string(b), `"status":"open"`)
}
