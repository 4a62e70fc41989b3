// Package notify tells owners and manufacturers that their bikes were found.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/internal/o11y"
	"github.com/semanticallynull/bikerecovery-backend/manufacturer"
	"github.com/semanticallynull/bikerecovery-backend/recovery"
	"github.com/semanticallynull/bikerecovery-backend/report"
)

type Reports interface {
	GetByBikeID(ctx context.Context, bikeID uuid.UUID) (report.MissingReport, error)
}

type Manufacturers interface {
	GetByName(ctx context.Context, name string) (manufacturer.Manufacturer, error)
}

type Message struct {
	To      string
	Subject string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher routes each resolved bike to exactly one recipient: the owner
// who reported it missing, or otherwise the manufacturer of its make.
type Dispatcher struct {
	reports       Reports
	manufacturers Manufacturers
	mailer        Mailer
	logger        *slog.Logger
	metrics       *o11y.Metrics
}

func NewDispatcher(reports Reports, manufacturers Manufacturers, mailer Mailer, logger *slog.Logger, metrics *o11y.Metrics) *Dispatcher {
	return &Dispatcher{
		reports:       reports,
		manufacturers: manufacturers,
		mailer:        mailer,
		logger:        logger,
		metrics:       metrics,
	}
}

// Resolved sends the notifications for a set of bikes resolved together.
// Fleet bikes of the same make are reported to their manufacturer in a
// single message.
func (d *Dispatcher) Resolved(ctx context.Context, outcomes []recovery.Outcome) error {
	var (
		fleet []recovery.Outcome
		errs  []error
	)

	for _, o := range outcomes {
		mr, err := d.reports.GetByBikeID(ctx, o.Bike.ID)
		if errors.Is(err, apperr.ErrNotFound) {
			fleet = append(fleet, o)
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("lookup missing report for %s: %w", o.Bike.ID, err))
			continue
		}
		errs = append(errs, d.send(ctx, "owner", OwnerMessage(mr, o)))
	}

	for _, g := range GroupByMake(fleet) {
		m, err := d.manufacturers.GetByName(ctx, g.Make)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			errs = append(errs, fmt.Errorf("lookup manufacturer %s: %w", g.Make, err))
			continue
		}
		if err != nil || !m.ContactEmail.Valid {
			d.metrics.Notifications.WithLabelValues("manufacturer", "no_contact").Inc()
			d.logger.WarnContext(ctx, "no contact for recovered fleet bikes",
				slog.String("make", g.Make),
				slog.Int("bikes", len(g.Outcomes)),
			)
			continue
		}
		errs = append(errs, d.send(ctx, "manufacturer", ManufacturerMessage(m.ContactEmail.String, g)))
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) send(ctx context.Context, path string, msg Message) error {
	if err := d.mailer.Send(ctx, msg); err != nil {
		d.metrics.Notifications.WithLabelValues(path, "failed").Inc()
		return fmt.Errorf("send to %s: %w", msg.To, err)
	}
	d.metrics.Notifications.WithLabelValues(path, "sent").Inc()
	return nil
}

// MakeGroup is the set of fleet bikes of one make found in a session.
type MakeGroup struct {
	Make     string
	Outcomes []recovery.Outcome
}

// GroupByMake groups outcomes by bike make, ordered by make. Within a group
// the input order is kept.
func GroupByMake(outcomes []recovery.Outcome) []MakeGroup {
	index := map[string]int{}
	var groups []MakeGroup
	for _, o := range outcomes {
		i, ok := index[o.Bike.Make]
		if !ok {
			i = len(groups)
			index[o.Bike.Make] = i
			groups = append(groups, MakeGroup{Make: o.Bike.Make})
		}
		groups[i].Outcomes = append(groups[i].Outcomes, o)
	}
	slices.SortFunc(groups, func(a, b MakeGroup) int {
		return strings.Compare(a.Make, b.Make)
	})
	return groups
}

func OwnerMessage(mr report.MissingReport, o recovery.Outcome) Message {
	return Message{
		To:      mr.MemberEmail,
		Subject: "Your Bike Has Been Found!",
		Text: fmt.Sprintf("Great news! We've found your bike (%s %s). You can pick it up at %s, %s.",
			o.Bike.Make, o.Bike.Model, o.Depot.Name, o.Depot.Address),
	}
}

func ManufacturerMessage(to string, g MakeGroup) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "The following %s bikes have been recovered:\n\n", g.Make)
	for _, o := range g.Outcomes {
		fmt.Fprintf(&b, "- %s (serial %s) at %s, %s\n", o.Bike.Model, o.Bike.SerialNumber, o.Depot.Name, o.Depot.Address)
	}

	subject := fmt.Sprintf("%d %s bike recovered", len(g.Outcomes), g.Make)
	if len(g.Outcomes) > 1 {
		subject = fmt.Sprintf("%d %s bikes recovered", len(g.Outcomes), g.Make)
	}
	return Message{To: to, Subject: subject, Text: b.String()}
}
