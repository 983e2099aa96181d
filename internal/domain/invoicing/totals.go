package invoicing

import (
	"github.com/shopspring/decimal"
)

// Totals holds the derived monetary totals of an invoice
type Totals struct {
	Subtotal decimal.Decimal
	TaxTotal decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals validates the given items, derives each item's LineTotal in
// place, and returns the invoice totals. It has no other side effects and is
// invoked by every item-mutating operation; its result replaces the stored
// totals in the same transaction as the item replacement.
//
// Subtotal is the sum of the pre-tax line amounts, Total the sum of the
// tax-inclusive line totals, and TaxTotal the difference, all rounded to
// 2 decimal places.
func ComputeTotals(items []LineItem) (Totals, error) {
	subtotal := decimal.Zero
	total := decimal.Zero

	for idx := range items {
		if err := items[idx].Validate(); err != nil {
			return Totals{}, err
		}
		items[idx].LineTotal = items[idx].computeLineTotal()
		subtotal = subtotal.Add(items[idx].netAmount())
		total = total.Add(items[idx].LineTotal)
	}

	subtotal = subtotal.Round(2)
	return Totals{
		Subtotal: subtotal,
		TaxTotal: total.Sub(subtotal),
		Total:    total,
	}, nil
}
