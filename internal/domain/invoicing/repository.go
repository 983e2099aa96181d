package invoicing

import (
	"context"
	"time"

	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceRepository persists Invoice aggregates
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*Invoice, error)
	// FindByGatewayOrderID looks an invoice up by the external gateway's
	// order identifier. The webhook path has no org context, so the lookup
	// is global.
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Invoice, error)
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]Invoice, error)
	CountForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (int64, error)
	Save(ctx context.Context, inv *Invoice) error
	// SaveWithLock saves with an optimistic version check and returns
	// shared.ErrConcurrencyConflict when the row changed underneath.
	SaveWithLock(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// RecurringInvoiceRepository persists RecurringInvoice aggregates
type RecurringInvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*RecurringInvoice, error)
	FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*RecurringInvoice, error)
	// FindDue returns active recurring invoices whose next generation date
	// is on or before the given day, across all organizations.
	FindDue(ctx context.Context, asOf time.Time) ([]RecurringInvoice, error)
	FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]RecurringInvoice, error)
	CountForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (int64, error)
	Save(ctx context.Context, ri *RecurringInvoice) error
	SaveWithLock(ctx context.Context, ri *RecurringInvoice) error
}

// PaymentRepository persists Payment records
type PaymentRepository interface {
	Save(ctx context.Context, p *Payment) error
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
	// ExistsByGatewayPaymentID reports whether a payment with the given
	// gateway payment id is already recorded for the invoice. Together with
	// a unique index on (invoice_id, gateway_payment_id) this makes webhook
	// application idempotent.
	ExistsByGatewayPaymentID(ctx context.Context, invoiceID uuid.UUID, gatewayPaymentID string) (bool, error)
}

// AuditRepository appends and reads the audit trail. Entries are immutable;
// there is no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	FindByInvoice(ctx context.Context, orgID, invoiceID uuid.UUID) ([]AuditEntry, error)
	FindByRecurringInvoice(ctx context.Context, orgID, recurringID uuid.UUID) ([]AuditEntry, error)
}

// SequenceRepository allocates per-organization invoice numbers from a
// dedicated counter row. The increment must run inside the same transaction
// as the invoice insert so numbers stay strictly increasing and gap-minimal
// under concurrency.
type SequenceRepository interface {
	NextInvoiceNumber(ctx context.Context, orgID uuid.UUID) (int64, error)
}

// Repositories bundles the repositories participating in one transaction
type Repositories struct {
	Invoices  InvoiceRepository
	Recurring RecurringInvoiceRepository
	Payments  PaymentRepository
	Audit     AuditRepository
	Sequences SequenceRepository
}

// UnitOfWork runs a function with repositories bound to a single storage
// transaction. The function's error rolls everything back; nil commits.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
