// Package memstore is an in-memory stand-in for the postgres repositories.
// A single mutex plays the role of the row locks and transactions.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerecovery-backend/attempt"
	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/depot"
	"github.com/semanticallynull/bikerecovery-backend/location"
	"github.com/semanticallynull/bikerecovery-backend/manufacturer"
	"github.com/semanticallynull/bikerecovery-backend/recovery"
	"github.com/semanticallynull/bikerecovery-backend/report"
)

type Store struct {
	mu sync.Mutex

	bikes         map[uuid.UUID]bike.Bike
	samples       []location.Sample
	pending       []location.PendingUpdate
	seq           int64
	attempts      []attempt.Attempt
	depots        map[uuid.UUID]depot.Depot
	reports       map[uuid.UUID]report.MissingReport
	manufacturers map[string]manufacturer.Manufacturer
	recoveries    []recovery.Recovery
}

func New() *Store {
	return &Store{
		bikes:         make(map[uuid.UUID]bike.Bike),
		depots:        make(map[uuid.UUID]depot.Depot),
		reports:       make(map[uuid.UUID]report.MissingReport),
		manufacturers: make(map[string]manufacturer.Manufacturer),
	}
}

// AddBike seeds a bike, assigning an id when it has none.
func (s *Store) AddBike(b bike.Bike) bike.Bike {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	s.bikes[b.ID] = b
	return b
}

func (s *Store) AddDepot(d depot.Depot) depot.Depot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.depots[d.ID] = d
	return d
}

func (s *Store) AddReport(r report.MissingReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.BikeID] = r
}

func (s *Store) AddManufacturer(m manufacturer.Manufacturer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manufacturers[strings.ToLower(m.Name)] = m
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (bike.Bike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bikes[id]
	if !ok {
		return bike.Bike{}, bike.ErrNotFound
	}
	return b, nil
}

func (s *Store) GetBySerialNumber(ctx context.Context, serial string) (bike.Bike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *bike.Bike
	for _, b := range s.bikes {
		if b.SerialNumber != serial {
			continue
		}
		if found == nil || b.CreatedAt.After(found.CreatedAt) {
			found = &b
		}
	}
	if found == nil {
		return bike.Bike{}, bike.ErrNotFound
	}
	return *found, nil
}

func (s *Store) RecordFix(ctx context.Context, id uuid.UUID, p location.Point, at time.Time, advance func(bike.Status) bike.Status) (bike.Bike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bikes[id]
	if !ok {
		return bike.Bike{}, bike.ErrNotFound
	}

	s.samples = append(s.samples, location.Sample{
		ID:         uuid.New(),
		BikeID:     id,
		Location:   p.PG(),
		RecordedAt: at,
	})

	b.Location = p.PG()
	b.LastSignal.Time, b.LastSignal.Valid = at, true
	b.Status = advance(b.Status)
	b.UpdatedAt = at
	s.bikes[id] = b
	return b, nil
}

func (s *Store) Transition(ctx context.Context, id uuid.UUID, guard func(bike.Bike) (bike.Status, error)) (bike.Bike, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bikes[id]
	if !ok {
		return bike.Bike{}, bike.ErrNotFound
	}
	next, err := guard(b)
	if err != nil {
		return bike.Bike{}, err
	}
	b.Status = next
	s.bikes[id] = b
	return b, nil
}

// All returns the bike's samples in chronological order.
func (s *Store) All(ctx context.Context, bikeID uuid.UUID) ([]location.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	samples := []location.Sample{}
	for _, smp := range s.samples {
		if smp.BikeID == bikeID {
			samples = append(samples, smp)
		}
	}
	slices.SortStableFunc(samples, func(a, b location.Sample) int {
		return a.RecordedAt.Compare(b.RecordedAt)
	})
	return samples, nil
}

func (s *Store) Enqueue(ctx context.Context, bikeID uuid.UUID, p location.Point, at time.Time) (location.PendingUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bikes[bikeID]; !ok {
		return location.PendingUpdate{}, location.ErrUnknownBike
	}
	s.seq++
	u := location.PendingUpdate{
		ID:         uuid.New(),
		Seq:        s.seq,
		BikeID:     bikeID,
		Location:   p.PG(),
		EnqueuedAt: at,
	}
	s.pending = append(s.pending, u)
	return u, nil
}

// EnqueueRaw queues an update without validating the bike or coordinate.
func (s *Store) EnqueueRaw(u location.PendingUpdate) location.PendingUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.seq++
	u.Seq = s.seq
	s.pending = append(s.pending, u)
	return u
}

func (s *Store) Pending(ctx context.Context) ([]location.PendingUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := slices.Clone(s.pending)
	slices.SortFunc(pending, func(a, b location.PendingUpdate) int {
		return cmp.Or(a.EnqueuedAt.Compare(b.EnqueuedAt), cmp.Compare(a.Seq, b.Seq))
	})
	return pending, nil
}

func (s *Store) Claim(ctx context.Context, id uuid.UUID) (location.PendingUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.pending, func(u location.PendingUpdate) bool { return u.ID == id })
	if i < 0 {
		return location.PendingUpdate{}, location.ErrNotClaimed
	}
	u := s.pending[i]
	s.pending = slices.Delete(s.pending, i, i+1)
	return u, nil
}

func (s *Store) Start(ctx context.Context, bikeID uuid.UUID, userID string, at time.Time, pursuable func(bike.Bike) error) (attempt.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bikes[bikeID]
	if !ok {
		return attempt.Attempt{}, false, bike.ErrNotFound
	}
	if err := pursuable(b); err != nil {
		return attempt.Attempt{}, false, err
	}
	if i := s.openAttempt(bikeID); i >= 0 {
		return s.attempts[i], false, nil
	}
	a := attempt.Attempt{
		ID:        uuid.New(),
		BikeID:    bikeID,
		UserID:    userID,
		Status:    attempt.StatusOpen,
		StartTime: at,
	}
	s.attempts = append(s.attempts, a)
	return a, true, nil
}

func (s *Store) Cancel(ctx context.Context, bikeID uuid.UUID, reason attempt.Reason, at time.Time) (attempt.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.openAttempt(bikeID)
	if i < 0 {
		return attempt.Attempt{}, attempt.ErrNoOpenAttempt
	}
	a := &s.attempts[i]
	a.Status = attempt.StatusCancelled
	a.CancellationReason = &reason
	a.EndTime.Time, a.EndTime.Valid = latest(at, a.StartTime), true
	return *a, nil
}

// Attempts returns every attempt recorded for the bike.
func (s *Store) Attempts(bikeID uuid.UUID) []attempt.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []attempt.Attempt
	for _, a := range s.attempts {
		if a.BikeID == bikeID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) openAttempt(bikeID uuid.UUID) int {
	return slices.IndexFunc(s.attempts, func(a attempt.Attempt) bool {
		return a.BikeID == bikeID && a.Status == attempt.StatusOpen
	})
}

func (s *Store) Resolve(ctx context.Context, req recovery.FoundRequest, guard func(bike.Bike) (bike.Status, error)) (recovery.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bikes[req.BikeID]
	if !ok {
		return recovery.Outcome{}, bike.ErrNotFound
	}
	next, err := guard(b)
	if err != nil {
		return recovery.Outcome{}, err
	}
	d, ok := s.depots[req.DepotID]
	if !ok {
		return recovery.Outcome{}, depot.ErrNotFound
	}

	var closed *attempt.Attempt
	if i := s.openAttempt(req.BikeID); i >= 0 {
		a := &s.attempts[i]
		a.Status = attempt.StatusSuccessful
		a.EndTime.Time, a.EndTime.Valid = latest(req.At, a.StartTime), true
		c := *a
		closed = &c
	}

	rec := recovery.Recovery{
		ID:      uuid.New(),
		BikeID:  req.BikeID,
		FoundBy: req.FoundBy,
		DepotID: d.ID,
		Notes:   req.Notes,
		FoundAt: req.At,
	}
	s.recoveries = append(s.recoveries, rec)

	b.Status = next
	b.ReturnDepotID = &d.ID
	s.bikes[b.ID] = b

	return recovery.Outcome{Bike: b, Depot: d, Recovery: rec, Attempt: closed}, nil
}

// Recoveries returns every recovery recorded so far.
func (s *Store) Recoveries() []recovery.Recovery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.recoveries)
}

func (s *Store) GetByBikeID(ctx context.Context, bikeID uuid.UUID) (report.MissingReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[bikeID]
	if !ok {
		return report.MissingReport{}, report.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetByName(ctx context.Context, name string) (manufacturer.Manufacturer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.manufacturers[strings.ToLower(name)]
	if !ok {
		return manufacturer.Manufacturer{}, manufacturer.ErrNotFound
	}
	return m, nil
}

func latest(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}
