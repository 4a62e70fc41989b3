package bike

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
)

func TestValidateTrackerID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"", true},
		{"deadbeef", true},
		{"0a1b2c3d", true},
		{"DEADBEEF", false},
		{"deadbee", false},
		{"deadbeef0", false},
		{"deadbeeg", false},
		{" deadbeef", false},
	}

	for _, tt := range tests {
		err := ValidateTrackerID(tt.id)
		if tt.valid {
			assert.NoError(t, err, "tracker id %q", tt.id)
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument, "tracker id %q", tt.id)
		field, _ := apperr.Field(err)
		assert.Equal(t, "trackerId", field)
	}
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(StatusInvestigating)
	require.NoError(t, err)
	assert.Equal(t, `"investigating"`, string(b))

	var s Status
	require.NoError(t, json.Unmarshal([]byte(`"lost"`), &s))
	assert.Equal(t, StatusLost, s)

	assert.Error(t, json.Unmarshal([]byte(`"stolen"`), &s))
}

func TestStatusScan(t *testing.T) {
	var s Status
	require.NoError(t, s.Scan("resolved"))
	assert.Equal(t, StatusResolved, s)

	require.NoError(t, s.Scan([]byte("pending")))
	assert.Equal(t, StatusPending, s)

	assert.Error(t, s.Scan(42))

	v, err := StatusInvestigating.Value()
	require.NoError(t, err)
	assert.Equal(t, "investigating", v)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInvestigating.Terminal())
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusLost.Terminal())
}

func TestRecoveryRate(t *testing.T) {
	assert.Equal(t, 0.0, RecoveryRate(0, 0))
	assert.Equal(t, 25.0, RecoveryRate(1, 3))
	assert.Equal(t, 100.0, RecoveryRate(4, 0))
}
