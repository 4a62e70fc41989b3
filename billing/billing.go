// Package billing invoices manufacturers for the recovery of their fleet bikes.
package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/manufacturer"
)

var ErrNothingToInvoice = fmt.Errorf("resolved bikes %w", apperr.ErrNotFound)

type Bikes interface {
	List(ctx context.Context, f bike.Filter) ([]bike.Bike, error)
}

type Manufacturers interface {
	GetByName(ctx context.Context, name string) (manufacturer.Manufacturer, error)
	SetStripeID(ctx context.Context, name, stripeID string) error
}

type Invoicer struct {
	bikes         Bikes
	manufacturers Manufacturers
	gateway       Gateway
	// amount is the recovery fee per bike, in cents.
	amount int64
	logger *slog.Logger
}

func NewInvoicer(bikes Bikes, manufacturers Manufacturers, gateway Gateway, amount int64, logger *slog.Logger) *Invoicer {
	return &Invoicer{
		bikes:         bikes,
		manufacturers: manufacturers,
		gateway:       gateway,
		amount:        amount,
		logger:        logger,
	}
}

type Invoice struct {
	ID    string `json:"id"`
	Lines int    `json:"lines"`
	Total int64  `json:"total"`
}

// InvoiceManufacturer bills the manufacturer one recovery fee per resolved
// bike of its make.
func (i *Invoicer) InvoiceManufacturer(ctx context.Context, name string) (Invoice, error) {
	m, err := i.manufacturers.GetByName(ctx, name)
	if err != nil {
		return Invoice{}, err
	}

	resolved := bike.StatusResolved
	bikes, err := i.bikes.List(ctx, bike.Filter{Status: &resolved, Makes: []string{m.Name}})
	if err != nil {
		return Invoice{}, err
	}
	if len(bikes) == 0 {
		return Invoice{}, ErrNothingToInvoice
	}

	if !m.StripeID.Valid {
		id, err := i.gateway.CreateCustomer(m.Name, m.ContactEmail.String, map[string]string{
			"manufacturer_id": m.ID.String(),
		})
		if err != nil {
			return Invoice{}, fmt.Errorf("create customer: %w", err)
		}
		if err := i.manufacturers.SetStripeID(ctx, m.Name, id); err != nil {
			return Invoice{}, fmt.Errorf("save customer id: %w", err)
		}
		m.StripeID.String, m.StripeID.Valid = id, true
	}

	lines := make([]Line, 0, len(bikes))
	for _, b := range bikes {
		lines = append(lines, Line{
			Amount:      i.amount,
			Description: fmt.Sprintf("Recovery - %s %s (serial %s)", b.Make, b.Model, b.SerialNumber),
		})
	}

	id, err := i.gateway.Invoice(m.StripeID.String, lines)
	if err != nil {
		return Invoice{}, err
	}

	inv := Invoice{ID: id, Lines: len(lines), Total: i.amount * int64(len(lines))}
	i.logger.InfoContext(ctx, "manufacturer invoiced",
		slog.String("manufacturer", m.Name),
		slog.String("invoice_id", id),
		slog.Int("lines", inv.Lines),
		slog.Int64("total", inv.Total),
	)
	return inv, nil
}
