// Package tracking turns tracker position reports into location history and
// live updates.
package tracking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/broadcast"
	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/internal/clock"
	"github.com/semanticallynull/bikerecovery-backend/internal/o11y"
	"github.com/semanticallynull/bikerecovery-backend/location"
	"github.com/semanticallynull/bikerecovery-backend/recovery"
)

var tracer = otel.Tracer("github.com/semanticallynull/bikerecovery-backend/tracking")

// Registry records a position fix against a bike. The sample, the bike's
// current position and its status must be written together or not at all.
type Registry interface {
	RecordFix(ctx context.Context, id uuid.UUID, p location.Point, at time.Time, advance func(bike.Status) bike.Status) (bike.Bike, error)
}

type Publisher interface {
	Publish(event broadcast.Event)
}

type Pipeline struct {
	bikes     Registry
	publisher Publisher
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *o11y.Metrics
}

func NewPipeline(bikes Registry, publisher Publisher, clk clock.Clock, logger *slog.Logger, metrics *o11y.Metrics) *Pipeline {
	return &Pipeline{
		bikes:     bikes,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
		metrics:   metrics,
	}
}

// ApplyPosition records p as the bike's newest position. at defaults to now.
// The bike's current state reflects whichever call is applied last; callers
// feed updates in chronological order.
func (p *Pipeline) ApplyPosition(ctx context.Context, bikeID uuid.UUID, pos location.Point, at *time.Time) (bike.Bike, error) {
	ctx, span := tracer.Start(ctx, "tracking.apply_position")
	defer span.End()
	span.SetAttributes(attribute.String("bike.id", bikeID.String()))

	if err := pos.Validate(); err != nil {
		p.reject(ctx, span, bikeID, "invalid_coordinate", err)
		return bike.Bike{}, err
	}

	ts := p.clock.Now()
	if at != nil {
		ts = *at
	}

	var from bike.Status
	b, err := p.bikes.RecordFix(ctx, bikeID, pos, ts, func(current bike.Status) bike.Status {
		from = current
		return recovery.SignalReceived(current)
	})
	if err != nil {
		reason := "storage"
		if errors.Is(err, apperr.ErrNotFound) {
			reason = "unknown_bike"
		}
		p.reject(ctx, span, bikeID, reason, err)
		return bike.Bike{}, err
	}

	p.metrics.PositionsApplied.Inc()
	if from != b.Status {
		p.metrics.Transitions.WithLabelValues(from.String(), b.Status.String()).Inc()
		p.logger.InfoContext(ctx, "bike now under investigation",
			slog.String("bike_id", bikeID.String()),
		)
	}

	p.publisher.Publish(broadcast.Event{
		Type:      broadcast.EventLocationUpdated,
		Timestamp: p.clock.Now(),
		Bike:      b,
		Location:  pos,
	})

	p.logger.DebugContext(ctx, "position applied",
		slog.String("bike_id", bikeID.String()),
		slog.Float64("longitude", pos.Lng),
		slog.Float64("latitude", pos.Lat),
		slog.Time("recorded_at", ts),
	)
	return b, nil
}

func (p *Pipeline) reject(ctx context.Context, span trace.Span, bikeID uuid.UUID, reason string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.metrics.PositionsRejected.WithLabelValues(reason).Inc()
	p.logger.WarnContext(ctx, "position rejected",
		slog.String("bike_id", bikeID.String()),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
}
