package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v84"
	stripecustomer "github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/invoice"
)

// Line is one charge on an invoice, in cents.
type Line struct {
	Amount      int64
	Description string
}

// Gateway is the subset of the payment provider used for invoicing.
type Gateway interface {
	CreateCustomer(name, email string, metadata map[string]string) (string, error)
	Invoice(customerID string, lines []Line) (string, error)
}

// StripeGateway talks to Stripe with the package level API key.
type StripeGateway struct{}

func (StripeGateway) CreateCustomer(name, email string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{
		Name:     stripe.String(name),
		Metadata: metadata,
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	c, err := stripecustomer.New(params)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// Invoice creates, fills and finalizes an invoice and returns its id.
func (StripeGateway) Invoice(customerID string, lines []Line) (string, error) {
	in, err := invoice.New(&stripe.InvoiceParams{
		Customer: stripe.String(customerID),
	})
	if err != nil {
		return "", fmt.Errorf("create invoice: %w", err)
	}

	params := &stripe.InvoiceAddLinesParams{}
	for _, l := range lines {
		params.Lines = append(params.Lines, &stripe.InvoiceAddLinesLineParams{
			Amount:      stripe.Int64(l.Amount),
			Description: stripe.String(l.Description),
		})
	}
	if _, err := invoice.AddLines(in.ID, params); err != nil {
		return "", fmt.Errorf("add lines to invoice: %w", err)
	}

	if _, err := invoice.FinalizeInvoice(in.ID, &stripe.InvoiceFinalizeInvoiceParams{}); err != nil {
		return "", fmt.Errorf("finalize invoice: %w", err)
	}
	return in.ID, nil
}
