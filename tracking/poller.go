package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/internal/o11y"
	"github.com/semanticallynull/bikerecovery-backend/location"
)

// Queue holds simulated position reports waiting to be applied.
type Queue interface {
	Pending(ctx context.Context) ([]location.PendingUpdate, error)
	// Claim removes the update and returns it. It fails with
	// location.ErrNotClaimed when another poller got there first.
	Claim(ctx context.Context, id uuid.UUID) (location.PendingUpdate, error)
}

type Applier interface {
	ApplyPosition(ctx context.Context, bikeID uuid.UUID, pos location.Point, at *time.Time) (bike.Bike, error)
}

// Poller drains the pending update queue on a fixed interval.
type Poller struct {
	queue    Queue
	applier  Applier
	interval time.Duration
	logger   *slog.Logger
	metrics  *o11y.Metrics

	stopCh  chan struct{}
	done    chan struct{}
	started atomic.Bool
	once    sync.Once
}

func NewPoller(queue Queue, applier Applier, interval time.Duration, logger *slog.Logger, metrics *o11y.Metrics) *Poller {
	return &Poller{
		queue:    queue,
		applier:  applier,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Sweep summarises one pass over the queue.
type Sweep struct {
	Applied int
	Dropped int
	Skipped int
}

// PollOnce applies every queued update in enqueue order. Each update is
// claimed before it is applied, so it is consumed at most once even with
// several pollers. An update that fails to apply is dropped and the sweep
// moves on. Only failing to read the queue is returned as an error.
func (p *Poller) PollOnce(ctx context.Context) (Sweep, error) {
	ctx, span := tracer.Start(ctx, "tracking.poll_once")
	defer span.End()

	start := time.Now()
	defer func() {
		p.metrics.PollDuration.Observe(time.Since(start).Seconds())
	}()

	var sweep Sweep
	updates, err := p.queue.Pending(ctx)
	if err != nil {
		return sweep, fmt.Errorf("list pending updates: %w", err)
	}

	for _, u := range updates {
		// An interrupted sweep leaves the rest of the queue for the next one.
		if err := ctx.Err(); err != nil {
			return sweep, err
		}

		claimed, err := p.queue.Claim(ctx, u.ID)
		if errors.Is(err, location.ErrNotClaimed) {
			sweep.Skipped++
			continue
		}
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to claim pending update",
				slog.String("update_id", u.ID.String()),
				slog.String("error", err.Error()),
			)
			sweep.Skipped++
			continue
		}

		at := claimed.EnqueuedAt
		if _, err := p.applier.ApplyPosition(ctx, claimed.BikeID, claimed.Point(), &at); err != nil {
			p.metrics.UpdatesDropped.Inc()
			p.logger.WarnContext(ctx, "dropping pending update",
				slog.String("update_id", claimed.ID.String()),
				slog.String("bike_id", claimed.BikeID.String()),
				slog.String("error", err.Error()),
			)
			sweep.Dropped++
			continue
		}
		sweep.Applied++
	}

	if len(updates) > 0 {
		p.logger.InfoContext(ctx, "pending updates processed",
			slog.Int("applied", sweep.Applied),
			slog.Int("dropped", sweep.Dropped),
			slog.Int("skipped", sweep.Skipped),
		)
	}
	return sweep, nil
}

// Start runs PollOnce every interval until ctx is done or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	if p.started.Swap(true) {
		return
	}
	go p.run(ctx)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stopCh) })
	if p.started.Load() {
		<-p.done
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.ErrorContext(ctx, "poll failed", slog.String("error", err.Error()))
			}
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
