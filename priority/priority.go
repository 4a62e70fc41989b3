// Package priority ranks bikes under active investigation for a field agent,
// balancing how fresh a bike's signal is against how long it takes to drive there.
package priority

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/semanticallynull/bikerecovery-backend/bike"
)

// Candidate is a bike an agent could pursue.
type Candidate struct {
	Bike bike.Bike
	// LastSignal is zero when the bike never reported a position.
	LastSignal time.Time
	// DrivingTime is nil when no route to the bike is known.
	DrivingTime *time.Duration
}

const (
	freshSignal    = time.Hour
	recentSignal   = 24 * time.Hour
	staleSignal    = 72 * time.Hour
	reachableDrive = 60 * time.Minute
)

// emissionOrder lists tiers from most to least urgent. The tier ids are
// bucket labels, not ranks: very fresh but nearby bikes (tier 3) are pursued
// after moderately stale reachable ones.
var emissionOrder = [...]int{1, 2, 3, 4}

// Tier buckets a candidate by signal age and driving time.
func Tier(c Candidate, now time.Time) int {
	age := signalAge(c.LastSignal, now)
	reachable := c.DrivingTime != nil && *c.DrivingTime <= reachableDrive

	switch {
	case age > freshSignal && age <= recentSignal:
		if reachable {
			return 1
		}
		return 2
	case age > recentSignal && age <= staleSignal:
		if reachable {
			return 2
		}
		return 3
	case age <= freshSignal:
		if reachable {
			return 3
		}
		return 4
	default:
		return 4
	}
}

// signalAge is the absolute distance between the signal and now. A bike that
// never signalled is treated as infinitely stale.
func signalAge(at, now time.Time) time.Duration {
	if at.IsZero() {
		return time.Duration(math.MaxInt64)
	}
	d := now.Sub(at)
	if d < 0 {
		return -d
	}
	return d
}

// Prioritize returns the candidates in pursuit order: grouped by tier in
// emission order, each tier sorted by driving time ascending with unknown
// driving times last. Candidates that compare equal keep their input order.
// The input slice is not modified.
func Prioritize(candidates []Candidate, now time.Time) []Candidate {
	buckets := make(map[int][]Candidate, len(emissionOrder))
	for _, c := range candidates {
		tier := Tier(c, now)
		buckets[tier] = append(buckets[tier], c)
	}

	ordered := make([]Candidate, 0, len(candidates))
	for _, tier := range emissionOrder {
		bucket := buckets[tier]
		slices.SortStableFunc(bucket, func(a, b Candidate) int {
			return cmp.Compare(drivingSeconds(a), drivingSeconds(b))
		})
		ordered = append(ordered, bucket...)
	}
	return ordered
}

func drivingSeconds(c Candidate) float64 {
	if c.DrivingTime == nil {
		return math.Inf(1)
	}
	return c.DrivingTime.Seconds()
}
