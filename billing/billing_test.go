package billing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikerecovery-backend/bike"
	"github.com/semanticallynull/bikerecovery-backend/internal/apperr"
	"github.com/semanticallynull/bikerecovery-backend/manufacturer"
)

type fakeBikes struct {
	bikes []bike.Bike
	got   bike.Filter
}

func (f *fakeBikes) List(ctx context.Context, filter bike.Filter) ([]bike.Bike, error) {
	f.got = filter
	return f.bikes, nil
}

type fakeManufacturers struct {
	m        manufacturer.Manufacturer
	stripeID string
}

func (f *fakeManufacturers) GetByName(ctx context.Context, name string) (manufacturer.Manufacturer, error) {
	if name != f.m.Name {
		return manufacturer.Manufacturer{}, manufacturer.ErrNotFound
	}
	return f.m, nil
}

func (f *fakeManufacturers) SetStripeID(ctx context.Context, name, stripeID string) error {
	f.stripeID = stripeID
	return nil
}

type fakeGateway struct {
	customers int
	customer  string
	lines     []Line
	err       error
}

func (g *fakeGateway) CreateCustomer(name, email string, metadata map[string]string) (string, error) {
	g.customers++
	return "cus_" + name, nil
}

func (g *fakeGateway) Invoice(customerID string, lines []Line) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.customer = customerID
	g.lines = lines
	return "in_123", nil
}

func newInvoicer(b Bikes, m Manufacturers, g Gateway) *Invoicer {
	return NewInvoicer(b, m, g, 2500, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestInvoiceManufacturer(t *testing.T) {
	bikes := &fakeBikes{bikes: []bike.Bike{
		{ID: uuid.New(), Make: "Gazelle", Model: "Ultimate", SerialNumber: "GZ-1"},
		{ID: uuid.New(), Make: "Gazelle", Model: "Medeo", SerialNumber: "GZ-2"},
	}}
	mfrs := &fakeManufacturers{m: manufacturer.Manufacturer{
		ID:           uuid.New(),
		Name:         "Gazelle",
		ContactEmail: sql.NullString{String: "fleet@gazelle.example", Valid: true},
	}}
	gw := &fakeGateway{}

	inv, err := newInvoicer(bikes, mfrs, gw).InvoiceManufacturer(context.Background(), "Gazelle")
	require.NoError(t, err)

	assert.Equal(t, Invoice{ID: "in_123", Lines: 2, Total: 5000}, inv)
	assert.Equal(t, 1, gw.customers)
	assert.Equal(t, "cus_Gazelle", mfrs.stripeID)
	assert.Equal(t, "cus_Gazelle", gw.customer)
	require.Len(t, gw.lines, 2)
	assert.Equal(t, "Recovery - Gazelle Ultimate (serial GZ-1)", gw.lines[0].Description)

	require.NotNil(t, bikes.got.Status)
	assert.Equal(t, bike.StatusResolved, *bikes.got.Status)
	assert.Equal(t, []string{"Gazelle"}, bikes.got.Makes)
}

func TestInvoiceManufacturerExistingCustomer(t *testing.T) {
	bikes := &fakeBikes{bikes: []bike.Bike{{Make: "Gazelle"}}}
	mfrs := &fakeManufacturers{m: manufacturer.Manufacturer{
		Name:     "Gazelle",
		StripeID: sql.NullString{String: "cus_existing", Valid: true},
	}}
	gw := &fakeGateway{}

	_, err := newInvoicer(bikes, mfrs, gw).InvoiceManufacturer(context.Background(), "Gazelle")
	require.NoError(t, err)
	assert.Zero(t, gw.customers)
	assert.Equal(t, "cus_existing", gw.customer)
}

func TestInvoiceManufacturerErrors(t *testing.T) {
	mfrs := &fakeManufacturers{m: manufacturer.Manufacturer{Name: "Gazelle"}}

	_, err := newInvoicer(&fakeBikes{}, mfrs, &fakeGateway{}).InvoiceManufacturer(context.Background(), "Batavus")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = newInvoicer(&fakeBikes{}, mfrs, &fakeGateway{}).InvoiceManufacturer(context.Background(), "Gazelle")
	assert.ErrorIs(t, err, ErrNothingToInvoice)

	gw := &fakeGateway{err: errors.New("card_declined")}
	_, err = newInvoicer(&fakeBikes{bikes: []bike.Bike{{}}}, mfrs, gw).InvoiceManufacturer(context.Background(), "Gazelle")
	assert.ErrorContains(t, err, "card_declined")
}
