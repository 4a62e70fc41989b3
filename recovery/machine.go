package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/semanticallynull/bikerecovery-backend/attempt"
	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/internal/clock"
	"github.com/semanticallynull/bikerecovery-backend/internal/o11y"
)

var tracer = otel.Tracer("github.com/semanticallynull/bikerecovery-backend/recovery")

type Bikes interface {
	GetBySerialNumber(ctx context.Context, serial string) (bike.Bike, error)
	Transition(ctx context.Context, id uuid.UUID, guard func(bike.Bike) (bike.Status, error)) (bike.Bike, error)
}

type Attempts interface {
	// Start must apply pursuable to the bike atomically with opening the
	// attempt.
	Start(ctx context.Context, bikeID uuid.UUID, userID string, at time.Time, pursuable func(bike.Bike) error) (attempt.Attempt, bool, error)
	Cancel(ctx context.Context, bikeID uuid.UUID, reason attempt.Reason, at time.Time) (attempt.Attempt, error)
}

type Resolver interface {
	Resolve(ctx context.Context, req FoundRequest, guard func(bike.Bike) (bike.Status, error)) (Outcome, error)
}

// Notifier is told about bikes once their resolution has been committed.
type Notifier interface {
	Resolved(ctx context.Context, outcomes []Outcome) error
}

type Machine struct {
	bikes    Bikes
	attempts Attempts
	resolver Resolver
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *o11y.Metrics
}

func NewMachine(
	bikes Bikes,
	attempts Attempts,
	resolver Resolver,
	notifier Notifier,
	clk clock.Clock,
	logger *slog.Logger,
	metrics *o11y.Metrics,
) *Machine {
	return &Machine{
		bikes:    bikes,
		attempts: attempts,
		resolver: resolver,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		metrics:  metrics,
	}
}

// Investigate moves a pending bike under investigation without waiting for
// its tracker to report.
func (m *Machine) Investigate(ctx context.Context, bikeID uuid.UUID) (bike.Bike, error) {
	return m.transition(ctx, "investigate", bikeID, Investigate)
}

// MarkLost closes a bike that cannot be recovered.
func (m *Machine) MarkLost(ctx context.Context, bikeID uuid.UUID) (bike.Bike, error) {
	return m.transition(ctx, "mark_lost", bikeID, Lost)
}

func (m *Machine) transition(ctx context.Context, name string, bikeID uuid.UUID, guard func(bike.Bike) (bike.Status, error)) (bike.Bike, error) {
	ctx, span := tracer.Start(ctx, "recovery."+name)
	defer span.End()
	span.SetAttributes(attribute.String("bike.id", bikeID.String()))

	var from bike.Status
	b, err := m.bikes.Transition(ctx, bikeID, func(current bike.Bike) (bike.Status, error) {
		from = current.Status
		return guard(current)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return bike.Bike{}, err
	}

	m.recordTransition(from, b.Status)
	m.logger.InfoContext(ctx, "bike status changed",
		slog.String("bike_id", bikeID.String()),
		slog.String("from", from.String()),
		slog.String("to", b.Status.String()),
	)
	return b, nil
}

// MarkFound resolves a bike, closes its open attempt and notifies whoever
// should collect it.
func (m *Machine) MarkFound(ctx context.Context, req FoundRequest) (Outcome, error) {
	o, err := m.resolve(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	m.notify(ctx, []Outcome{o})
	return o, nil
}

// SerialFailure explains why one serial number in a batch was not resolved.
type SerialFailure struct {
	SerialNumber string
	Err          error
}

type BatchResult struct {
	Found  []Outcome
	Failed []SerialFailure
}

// MarkFoundBySerial resolves every bike in a drop-off session. Bikes are
// resolved independently; notifications go out once for the whole batch so
// manufacturers receive a single message per make.
func (m *Machine) MarkFoundBySerial(ctx context.Context, serials []string, depotID uuid.UUID, foundBy, notes string) BatchResult {
	ctx, span := tracer.Start(ctx, "recovery.mark_found_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.size", len(serials)))

	var result BatchResult
	for _, serial := range serials {
		b, err := m.bikes.GetBySerialNumber(ctx, serial)
		if err != nil {
			result.Failed = append(result.Failed, SerialFailure{SerialNumber: serial, Err: err})
			continue
		}

		o, err := m.resolve(ctx, FoundRequest{
			BikeID:  b.ID,
			DepotID: depotID,
			FoundBy: foundBy,
			Notes:   notes,
		})
		if err != nil {
			result.Failed = append(result.Failed, SerialFailure{SerialNumber: serial, Err: err})
			continue
		}
		result.Found = append(result.Found, o)
	}

	if len(result.Found) > 0 {
		m.notify(ctx, result.Found)
	}
	return result
}

func (m *Machine) resolve(ctx context.Context, req FoundRequest) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "recovery.mark_found")
	defer span.End()
	span.SetAttributes(
		attribute.String("bike.id", req.BikeID.String()),
		attribute.String("depot.id", req.DepotID.String()),
	)

	if req.At.IsZero() {
		req.At = m.clock.Now()
	}

	var from bike.Status
	o, err := m.resolver.Resolve(ctx, req, func(current bike.Bike) (bike.Status, error) {
		from = current.Status
		return Found(current)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}

	m.recordTransition(from, o.Bike.Status)
	if o.Attempt != nil {
		m.metrics.Attempts.WithLabelValues("successful").Inc()
	}
	m.logger.InfoContext(ctx, "bike resolved",
		slog.String("bike_id", req.BikeID.String()),
		slog.String("depot_id", o.Depot.ID.String()),
		slog.String("found_by", req.FoundBy),
		slog.Bool("closed_attempt", o.Attempt != nil),
	)
	return o, nil
}

// notify runs after commit. A failed notification never rolls back a
// resolution.
func (m *Machine) notify(ctx context.Context, outcomes []Outcome) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Resolved(ctx, outcomes); err != nil {
		m.logger.ErrorContext(ctx, "failed to send recovery notification",
			slog.Int("bikes", len(outcomes)),
			slog.String("error", err.Error()),
		)
	}
}

// StartAttempt opens an attempt for the user, or returns the attempt that is
// already open on the bike.
func (m *Machine) StartAttempt(ctx context.Context, bikeID uuid.UUID, userID string) (attempt.Attempt, error) {
	ctx, span := tracer.Start(ctx, "recovery.start_attempt")
	defer span.End()
	span.SetAttributes(attribute.String("bike.id", bikeID.String()))

	a, created, err := m.attempts.Start(ctx, bikeID, userID, m.clock.Now(), Pursuable)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return attempt.Attempt{}, fmt.Errorf("start attempt: %w", err)
	}

	if created {
		m.metrics.Attempts.WithLabelValues("started").Inc()
		m.logger.InfoContext(ctx, "attempt started",
			slog.String("bike_id", bikeID.String()),
			slog.String("attempt_id", a.ID.String()),
			slog.String("user_id", userID),
		)
	} else {
		m.logger.DebugContext(ctx, "attempt already open",
			slog.String("bike_id", bikeID.String()),
			slog.String("attempt_id", a.ID.String()),
		)
	}
	return a, nil
}

// CancelAttempt closes the bike's open attempt with the agent's reason.
func (m *Machine) CancelAttempt(ctx context.Context, bikeID uuid.UUID, reason attempt.Reason) (attempt.Attempt, error) {
	ctx, span := tracer.Start(ctx, "recovery.cancel_attempt")
	defer span.End()
	span.SetAttributes(
		attribute.String("bike.id", bikeID.String()),
		attribute.String("reason", reason.String()),
	)

	a, err := m.attempts.Cancel(ctx, bikeID, reason, m.clock.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return attempt.Attempt{}, err
	}

	m.metrics.Attempts.WithLabelValues("cancelled").Inc()
	m.logger.InfoContext(ctx, "attempt cancelled",
		slog.String("bike_id", bikeID.String()),
		slog.String("attempt_id", a.ID.String()),
		slog.String("reason", reason.String()),
	)
	return a, nil
}

func (m *Machine) recordTransition(from, to bike.Status) {
	if from == to {
		return
	}
	m.metrics.Transitions.WithLabelValues(from.String(), to.String()).Inc()
}
