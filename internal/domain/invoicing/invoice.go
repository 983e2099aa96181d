package invoicing

import (
	"fmt"
	"time"

	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/invoicehub/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPaymentTermsDays is the due-date offset applied on send when the
// invoice has no explicit due date.
const DefaultPaymentTermsDays = 30

// InvoiceStatus represents the stored status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"

	// InvoiceStatusOverdue is a derived, read-time status. It is never
	// stored: an invoice reads as overdue while it is sent with a due date
	// in the past, and reverts to plain sent semantics the moment it is paid.
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// IsValid checks if the status is a valid stored InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the stored status can transition to the target status
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	switch s {
	case InvoiceStatusDraft:
		return target == InvoiceStatusSent || target == InvoiceStatusCancelled
	case InvoiceStatusSent:
		return target == InvoiceStatusPaid || target == InvoiceStatusCancelled
	case InvoiceStatusPaid, InvoiceStatusCancelled:
		return false // Terminal states
	}
	return false
}

// FormatInvoiceNumber renders a sequence value as the zero-padded
// per-organization invoice number.
func FormatInvoiceNumber(seq int64) string {
	return fmt.Sprintf("%06d", seq)
}

// Invoice is the aggregate root for a single invoice.
// Totals are derived from the line items and never hand-edited.
type Invoice struct {
	shared.OrgAggregateRoot
	Number       string
	CustomerID   uuid.UUID
	CustomerName string
	Items        []LineItem
	Currency     valueobject.Currency
	Subtotal     decimal.Decimal
	TaxTotal     decimal.Decimal
	Total        decimal.Decimal
	Status       InvoiceStatus
	IssueDate    time.Time
	DueDate      *time.Time
	Notes        string

	GatewayOrderID   string
	GatewayPaymentID string

	SentAt      *time.Time
	PaidAt      *time.Time
	CancelledAt *time.Time
}

// NewInvoice creates a new draft invoice with totals applied
func NewInvoice(orgID uuid.UUID, number string, customerID uuid.UUID, customerName string, issueDate time.Time, items []LineItem) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("VALIDATION", "Invoice number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "Customer ID cannot be empty")
	}
	if issueDate.IsZero() {
		return nil, shared.NewDomainError("VALIDATION", "Issue date cannot be empty")
	}

	inv := &Invoice{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(orgID),
		Number:           number,
		CustomerID:       customerID,
		CustomerName:     customerName,
		Currency:         valueobject.DefaultCurrency,
		Status:           InvoiceStatusDraft,
		IssueDate:        issueDate,
	}
	if err := inv.applyItems(items); err != nil {
		return nil, err
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// ReplaceItems swaps the whole line item set and recomputes totals.
// Allowed only while the invoice is a draft; anything later is financial
// history and stays immutable.
func (i *Invoice) ReplaceItems(items []LineItem) error {
	if i.Status != InvoiceStatusDraft {
		return shared.ErrImmutableInvoice
	}
	if err := i.applyItems(items); err != nil {
		return err
	}
	i.UpdatedAt = time.Now()
	return nil
}

// Send transitions the invoice from draft to sent. The due date is computed
// from the issue date and the configured payment terms when not already set.
func (i *Invoice) Send(now time.Time, termsDays int) error {
	if !i.Status.CanTransitionTo(InvoiceStatusSent) {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot send invoice in %s status", i.Status))
	}
	if len(i.Items) == 0 {
		return shared.NewDomainError("VALIDATION", "Cannot send invoice without items")
	}

	if termsDays <= 0 {
		termsDays = DefaultPaymentTermsDays
	}
	if i.DueDate == nil {
		due := i.IssueDate.AddDate(0, 0, termsDays)
		i.DueDate = &due
	}

	i.Status = InvoiceStatusSent
	i.SentAt = &now
	i.UpdatedAt = now

	i.AddDomainEvent(NewInvoiceSentEvent(i))

	return nil
}

// MarkPaid records the payment and transitions the invoice to paid.
// Allowed from sent (including the derived overdue view); draft, paid and
// cancelled invoices reject the transition.
func (i *Invoice) MarkPaid(payment *Payment, now time.Time) error {
	if !i.Status.CanTransitionTo(InvoiceStatusPaid) {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot mark invoice paid in %s status", i.Status))
	}
	if payment == nil {
		return shared.NewDomainError("VALIDATION", "Payment is required")
	}

	i.Status = InvoiceStatusPaid
	i.PaidAt = &now
	if payment.GatewayPaymentID != "" {
		i.GatewayPaymentID = payment.GatewayPaymentID
	}
	i.UpdatedAt = now

	i.AddDomainEvent(NewInvoicePaidEvent(i, payment))

	return nil
}

// Cancel transitions the invoice to cancelled. Paid invoices cannot be
// cancelled.
func (i *Invoice) Cancel(now time.Time) error {
	if !i.Status.CanTransitionTo(InvoiceStatusCancelled) {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot cancel invoice in %s status", i.Status))
	}

	i.Status = InvoiceStatusCancelled
	i.CancelledAt = &now
	i.UpdatedAt = now

	i.AddDomainEvent(NewInvoiceCancelledEvent(i))

	return nil
}

// SetGatewayOrderID links the invoice to an external payment gateway order.
// Allowed until the invoice reaches a terminal state.
func (i *Invoice) SetGatewayOrderID(orderID string) error {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot link gateway order in %s status", i.Status))
	}
	i.GatewayOrderID = orderID
	i.UpdatedAt = time.Now()
	return nil
}

// IsOverdue reports whether the invoice reads as overdue at the given time
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == InvoiceStatusSent && i.DueDate != nil && i.DueDate.Before(now)
}

// EffectiveStatus returns the read-time status, substituting the derived
// overdue view for sent invoices past their due date.
func (i *Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.IsOverdue(now) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// IsDraft returns true if the invoice is still a draft
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsTerminal returns true if the invoice is paid or cancelled
func (i *Invoice) IsTerminal() bool {
	return i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCancelled
}

// HasGatewayPayment reports whether the given gateway payment id has already
// been applied to this invoice. This is the idempotency check for webhook
// redelivery.
func (i *Invoice) HasGatewayPayment(gatewayPaymentID string) bool {
	return gatewayPaymentID != "" && i.GatewayPaymentID == gatewayPaymentID
}

// applyItems validates and stores a full item set plus derived totals
func (i *Invoice) applyItems(items []LineItem) error {
	totals, err := ComputeTotals(items)
	if err != nil {
		return err
	}

	for idx := range items {
		items[idx].InvoiceID = i.ID
		items[idx].Position = idx
	}

	i.Items = items
	i.Subtotal = totals.Subtotal
	i.TaxTotal = totals.TaxTotal
	i.Total = totals.Total
	return nil
}
