package invoicing

import (
	"time"

	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ActivityType classifies an audit trail entry
type ActivityType string

const (
	ActivityInvoiceCreated       ActivityType = "invoice_created"
	ActivityInvoiceSent          ActivityType = "invoice_sent"
	ActivityInvoicePaid          ActivityType = "invoice_paid"
	ActivityInvoiceCancelled     ActivityType = "invoice_cancelled"
	ActivityItemsReplaced        ActivityType = "items_replaced"
	ActivityRecurringCreated     ActivityType = "recurring_created"
	ActivityRecurringPaused      ActivityType = "recurring_paused"
	ActivityRecurringResumed     ActivityType = "recurring_resumed"
	ActivityRecurringCancelled   ActivityType = "recurring_cancelled"
	ActivityRecurringGenerated   ActivityType = "recurring_generated"
	ActivityGenerationFailed     ActivityType = "generation_failed"
	ActivityReconciliationOrphan ActivityType = "reconciliation_orphan"
)

// IsValid checks if the activity type is known
func (a ActivityType) IsValid() bool {
	switch a {
	case ActivityInvoiceCreated, ActivityInvoiceSent, ActivityInvoicePaid,
		ActivityInvoiceCancelled, ActivityItemsReplaced,
		ActivityRecurringCreated, ActivityRecurringPaused, ActivityRecurringResumed,
		ActivityRecurringCancelled, ActivityRecurringGenerated,
		ActivityGenerationFailed, ActivityReconciliationOrphan:
		return true
	}
	return false
}

// SystemActor identifies actions performed by the system itself (the
// schedule engine, the webhook path) rather than a user.
var SystemActor = uuid.Nil

// AuditEntry is one immutable row of the append-only audit trail. Every
// state-affecting action writes exactly one entry in the same transaction
// as the mutation it records.
type AuditEntry struct {
	ID                 uuid.UUID
	OrgID              uuid.UUID
	InvoiceID          *uuid.UUID
	RecurringInvoiceID *uuid.UUID
	PaymentID          *uuid.UUID
	ActorID            uuid.UUID // SystemActor for non-user actions
	Activity           ActivityType
	Comment            string
	CreatedAt          time.Time
}

// NewAuditEntry creates an audit entry for an invoice action
func NewAuditEntry(orgID uuid.UUID, invoiceID uuid.UUID, actorID uuid.UUID, activity ActivityType, comment string) (*AuditEntry, error) {
	if !activity.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "Unknown activity type")
	}
	return &AuditEntry{
		ID:        uuid.New(),
		OrgID:     orgID,
		InvoiceID: &invoiceID,
		ActorID:   actorID,
		Activity:  activity,
		Comment:   comment,
		CreatedAt: time.Now(),
	}, nil
}

// NewRecurringAuditEntry creates an audit entry for a recurring invoice
// action, optionally linking the invoice it generated.
func NewRecurringAuditEntry(orgID uuid.UUID, recurringID uuid.UUID, invoiceID *uuid.UUID, actorID uuid.UUID, activity ActivityType, comment string) (*AuditEntry, error) {
	if !activity.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "Unknown activity type")
	}
	return &AuditEntry{
		ID:                 uuid.New(),
		OrgID:              orgID,
		RecurringInvoiceID: &recurringID,
		InvoiceID:          invoiceID,
		ActorID:            actorID,
		Activity:           activity,
		Comment:            comment,
		CreatedAt:          time.Now(),
	}, nil
}

// NewOrphanAuditEntry records a payment notification that matched no
// invoice. There is no org or invoice to attach it to; the gateway
// identifiers in the comment are the only trace.
func NewOrphanAuditEntry(comment string) *AuditEntry {
	return &AuditEntry{
		ID:        uuid.New(),
		ActorID:   SystemActor,
		Activity:  ActivityReconciliationOrphan,
		Comment:   comment,
		CreatedAt: time.Now(),
	}
}

// WithPayment links the audit entry to a payment record
func (a *AuditEntry) WithPayment(paymentID uuid.UUID) *AuditEntry {
	a.PaymentID = &paymentID
	return a
}
