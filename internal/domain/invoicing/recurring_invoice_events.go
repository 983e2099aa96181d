package invoicing

import (
	"time"

	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RecurringInvoiceCreatedEvent is raised when a recurring invoice is created
type RecurringInvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	RecurringInvoiceID uuid.UUID `json:"recurring_invoice_id"`
	Frequency          Frequency `json:"frequency"`
	StartDate          time.Time `json:"start_date"`
}

// NewRecurringInvoiceCreatedEvent creates a new RecurringInvoiceCreatedEvent
func NewRecurringInvoiceCreatedEvent(ri *RecurringInvoice) *RecurringInvoiceCreatedEvent {
	return &RecurringInvoiceCreatedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeRecurringInvoiceCreated, AggregateTypeRecurringInvoice, ri.ID, ri.OrgID),
		RecurringInvoiceID: ri.ID,
		Frequency:          ri.Frequency,
		StartDate:          ri.StartDate,
	}
}

// EventType returns the event type name
func (e *RecurringInvoiceCreatedEvent) EventType() string {
	return EventTypeRecurringInvoiceCreated
}

// RecurringInvoicePausedEvent is raised when generation is paused
type RecurringInvoicePausedEvent struct {
	shared.BaseDomainEvent
	RecurringInvoiceID uuid.UUID `json:"recurring_invoice_id"`
}

// NewRecurringInvoicePausedEvent creates a new RecurringInvoicePausedEvent
func NewRecurringInvoicePausedEvent(ri *RecurringInvoice) *RecurringInvoicePausedEvent {
	return &RecurringInvoicePausedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeRecurringInvoicePaused, AggregateTypeRecurringInvoice, ri.ID, ri.OrgID),
		RecurringInvoiceID: ri.ID,
	}
}

// EventType returns the event type name
func (e *RecurringInvoicePausedEvent) EventType() string {
	return EventTypeRecurringInvoicePaused
}

// RecurringInvoiceResumedEvent is raised when generation resumes
type RecurringInvoiceResumedEvent struct {
	shared.BaseDomainEvent
	RecurringInvoiceID uuid.UUID `json:"recurring_invoice_id"`
	NextGenerationDate time.Time `json:"next_generation_date"`
}

// NewRecurringInvoiceResumedEvent creates a new RecurringInvoiceResumedEvent
func NewRecurringInvoiceResumedEvent(ri *RecurringInvoice) *RecurringInvoiceResumedEvent {
	return &RecurringInvoiceResumedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeRecurringInvoiceResumed, AggregateTypeRecurringInvoice, ri.ID, ri.OrgID),
		RecurringInvoiceID: ri.ID,
		NextGenerationDate: ri.NextGenerationDate,
	}
}

// EventType returns the event type name
func (e *RecurringInvoiceResumedEvent) EventType() string {
	return EventTypeRecurringInvoiceResumed
}

// RecurringInvoiceCancelledEvent is raised when a recurring invoice is
// cancelled by a user
type RecurringInvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	RecurringInvoiceID uuid.UUID `json:"recurring_invoice_id"`
}

// NewRecurringInvoiceCancelledEvent creates a new RecurringInvoiceCancelledEvent
func NewRecurringInvoiceCancelledEvent(ri *RecurringInvoice) *RecurringInvoiceCancelledEvent {
	return &RecurringInvoiceCancelledEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeRecurringInvoiceCancelled, AggregateTypeRecurringInvoice, ri.ID, ri.OrgID),
		RecurringInvoiceID: ri.ID,
	}
}

// EventType returns the event type name
func (e *RecurringInvoiceCancelledEvent) EventType() string {
	return EventTypeRecurringInvoiceCancelled
}

// RecurringInvoiceGeneratedEvent is raised when the schedule engine
// materializes a new invoice from a template
type RecurringInvoiceGeneratedEvent struct {
	shared.BaseDomainEvent
	RecurringInvoiceID uuid.UUID `json:"recurring_invoice_id"`
	InvoiceID          uuid.UUID `json:"invoice_id"`
	InvoiceNumber      string    `json:"invoice_number"`
	GenerationDate     time.Time `json:"generation_date"`
}

// NewRecurringInvoiceGeneratedEvent creates a new RecurringInvoiceGeneratedEvent
func NewRecurringInvoiceGeneratedEvent(ri *RecurringInvoice, inv *Invoice, generationDate time.Time) *RecurringInvoiceGeneratedEvent {
	return &RecurringInvoiceGeneratedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeRecurringInvoiceGenerated, AggregateTypeRecurringInvoice, ri.ID, ri.OrgID),
		RecurringInvoiceID: ri.ID,
		InvoiceID:          inv.ID,
		InvoiceNumber:      inv.Number,
		GenerationDate:     generationDate,
	}
}

// EventType returns the event type name
func (e *RecurringInvoiceGeneratedEvent) EventType() string {
	return EventTypeRecurringInvoiceGenerated
}
