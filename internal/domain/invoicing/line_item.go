package invoicing

import (
	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// LineItem represents one billable row of an invoice.
// Items are owned by their invoice and replaced as a whole set on edit;
// they are never patched individually.
type LineItem struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal // percentage in [0, 100]
	LineTotal   decimal.Decimal // derived: round2(qty * price * (1 + rate/100))
}

// NewLineItem creates a validated line item with its derived total
func NewLineItem(description string, quantity, unitPrice, taxRate decimal.Decimal) (LineItem, error) {
	item := LineItem{
		ID:          uuid.New(),
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
	}
	if err := item.Validate(); err != nil {
		return LineItem{}, err
	}
	item.LineTotal = item.computeLineTotal()
	return item, nil
}

// Validate checks the line item value ranges
func (i LineItem) Validate() error {
	if i.Description == "" {
		return shared.NewDomainError("VALIDATION", "Line item description cannot be empty")
	}
	if i.Quantity.IsNegative() {
		return shared.NewDomainError("VALIDATION", "Line item quantity cannot be negative")
	}
	if i.UnitPrice.IsNegative() {
		return shared.NewDomainError("VALIDATION", "Line item unit price cannot be negative")
	}
	if i.TaxRate.IsNegative() || i.TaxRate.GreaterThan(oneHundred) {
		return shared.NewDomainError("VALIDATION", "Line item tax rate must be between 0 and 100")
	}
	return nil
}

// computeLineTotal derives the tax-inclusive line total rounded to 2 places
func (i LineItem) computeLineTotal() decimal.Decimal {
	gross := i.Quantity.Mul(i.UnitPrice)
	factor := decimal.NewFromInt(1).Add(i.TaxRate.Div(oneHundred))
	return gross.Mul(factor).Round(2)
}

// netAmount is the pre-tax amount of the line (quantity * unit price)
func (i LineItem) netAmount() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}
