// Package invoicing contains the billing lifecycle core: invoice totals
// computation, the invoice status state machine, recurring invoice
// scheduling, payments, and the append-only audit trail.
//
// Aggregates in this package enforce their own invariants; persistence and
// transaction boundaries live in the application and infrastructure layers.
package invoicing
