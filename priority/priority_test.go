package priority

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/semanticallynull/bikerecovery-backend/bike"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func drive(d time.Duration) *time.Duration {
	return &d
}

func candidate(name string, age time.Duration, driving *time.Duration) Candidate {
	return Candidate{
		Bike:        bike.Bike{ID: uuid.New(), SerialNumber: name},
		LastSignal:  now.Add(-age),
		DrivingTime: driving,
	}
}

func serials(cs []Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Bike.SerialNumber)
	}
	return out
}

func TestTier(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		driving *time.Duration
		want    int
	}{
		{"very fresh reachable", 30 * time.Minute, drive(20 * time.Minute), 3},
		{"very fresh far", 30 * time.Minute, drive(90 * time.Minute), 4},
		{"very fresh unknown route", 30 * time.Minute, nil, 4},
		{"exactly one hour", time.Hour, drive(60 * time.Minute), 3},
		{"fresh reachable", 10 * time.Hour, drive(30 * time.Minute), 1},
		{"fresh far", 10 * time.Hour, drive(61 * time.Minute), 2},
		{"exactly a day", 24 * time.Hour, drive(time.Hour), 1},
		{"moderate reachable", 30 * time.Hour, drive(40 * time.Minute), 2},
		{"moderate far", 30 * time.Hour, drive(2 * time.Hour), 3},
		{"exactly three days", 72 * time.Hour, nil, 3},
		{"stale reachable", 100 * time.Hour, drive(5 * time.Minute), 4},
		{"stale far", 100 * time.Hour, drive(5 * time.Hour), 4},
		{"signal in the future", -2 * time.Hour, drive(10 * time.Minute), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tier(candidate(tt.name, tt.age, tt.driving), now))
		})
	}
}

func TestTierNeverSignalled(t *testing.T) {
	c := Candidate{Bike: bike.Bike{ID: uuid.New()}, DrivingTime: drive(time.Minute)}
	assert.Equal(t, 4, Tier(c, now))
}

func TestPrioritizeEmitsTiersInOrder(t *testing.T) {
	a := candidate("A", 30*time.Minute, drive(90*time.Minute))
	b := candidate("B", 10*time.Hour, drive(30*time.Minute))
	c := candidate("C", 30*time.Hour, drive(40*time.Minute))
	d := candidate("D", 100*time.Hour, drive(5*time.Minute))
	e := candidate("E", 20*time.Minute, drive(10*time.Minute))

	got := Prioritize([]Candidate{a, b, c, d, e}, now)

	// B tier 1, C tier 2, E tier 3, then D and A share tier 4 ordered by driving time.
	assert.Equal(t, []string{"B", "C", "E", "D", "A"}, serials(got))
}

func TestPrioritizeSortsWithinTierByDrivingTime(t *testing.T) {
	far := candidate("far", 5*time.Hour, drive(55*time.Minute))
	near := candidate("near", 6*time.Hour, drive(5*time.Minute))
	mid := candidate("mid", 2*time.Hour, drive(25*time.Minute))

	got := Prioritize([]Candidate{far, near, mid}, now)
	assert.Equal(t, []string{"near", "mid", "far"}, serials(got))
}

func TestPrioritizeUnknownRouteLastAndStable(t *testing.T) {
	x := candidate("x", 100*time.Hour, nil)
	y := candidate("y", 200*time.Hour, nil)
	z := candidate("z", 80*time.Hour, drive(3*time.Hour))

	got := Prioritize([]Candidate{x, y, z}, now)
	assert.Equal(t, []string{"z", "x", "y"}, serials(got))
}

func TestPrioritizeIsDeterministic(t *testing.T) {
	in := []Candidate{
		candidate("1", 2*time.Hour, drive(10*time.Minute)),
		candidate("2", 2*time.Hour, drive(10*time.Minute)),
		candidate("3", 40*time.Hour, drive(10*time.Minute)),
		candidate("4", 10*time.Minute, nil),
	}
	first := serials(Prioritize(in, now))
	for range 20 {
		assert.Equal(t, first, serials(Prioritize(in, now)))
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, serials(in), "input must not be reordered")
}

func TestPrioritizeEmpty(t *testing.T) {
	assert.Empty(t, Prioritize(nil, now))
}
