package invoicing

import (
	"time"

	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeInvoice          = "Invoice"
	AggregateTypeRecurringInvoice = "RecurringInvoice"
)

// Event type constants
const (
	EventTypeInvoiceCreated   = "InvoiceCreated"
	EventTypeInvoiceSent      = "InvoiceSent"
	EventTypeInvoicePaid      = "InvoicePaid"
	EventTypeInvoiceCancelled = "InvoiceCancelled"

	EventTypeRecurringInvoiceCreated   = "RecurringInvoiceCreated"
	EventTypeRecurringInvoicePaused    = "RecurringInvoicePaused"
	EventTypeRecurringInvoiceResumed   = "RecurringInvoiceResumed"
	EventTypeRecurringInvoiceCancelled = "RecurringInvoiceCancelled"
	EventTypeRecurringInvoiceGenerated = "RecurringInvoiceGenerated"
)

// InvoiceCreatedEvent is raised when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Number     string          `json:"number"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.OrgID),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		Total:           inv.Total,
	}
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return EventTypeInvoiceCreated
}

// InvoiceSentEvent is raised when an invoice becomes payable.
// External notifiers (email delivery) subscribe to this event.
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Number     string          `json:"number"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
}

// NewInvoiceSentEvent creates a new InvoiceSentEvent
func NewInvoiceSentEvent(inv *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSent, AggregateTypeInvoice, inv.ID, inv.OrgID),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
		CustomerID:      inv.CustomerID,
		Total:           inv.Total,
		DueDate:         inv.DueDate,
	}
}

// EventType returns the event type name
func (e *InvoiceSentEvent) EventType() string {
	return EventTypeInvoiceSent
}

// InvoicePaidEvent is raised when a payment settles an invoice
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	Number           string          `json:"number"`
	PaymentID        uuid.UUID       `json:"payment_id"`
	Amount           decimal.Decimal `json:"amount"`
	Method           PaymentMethod   `json:"method"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, payment *Payment) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, inv.ID, inv.OrgID),
		InvoiceID:        inv.ID,
		Number:           inv.Number,
		PaymentID:        payment.ID,
		Amount:           payment.Amount,
		Method:           payment.Method,
		GatewayPaymentID: payment.GatewayPaymentID,
	}
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return EventTypeInvoicePaid
}

// InvoiceCancelledEvent is raised when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Number    string    `json:"number"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, AggregateTypeInvoice, inv.ID, inv.OrgID),
		InvoiceID:       inv.ID,
		Number:          inv.Number,
	}
}

// EventType returns the event type name
func (e *InvoiceCancelledEvent) EventType() string {
	return EventTypeInvoiceCancelled
}
