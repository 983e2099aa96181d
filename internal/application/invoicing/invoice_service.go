package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
)

// LineItemInput carries one line item from a caller
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
}

// CreateInvoiceInput carries everything needed to create a draft invoice
type CreateInvoiceInput struct {
	OrgID          uuid.UUID
	CustomerID     uuid.UUID
	CustomerName   string
	IssueDate      time.Time
	Notes          string
	GatewayOrderID string
	Items          []LineItemInput
}

// PaymentInput carries a manual payment from a caller
type PaymentInput struct {
	Amount           decimal.Decimal
	PaymentDate      time.Time
	Method           invoicing.PaymentMethod
	Notes            string
	GatewayPaymentID string
}

// InvoiceServiceConfig contains configuration for InvoiceService
type InvoiceServiceConfig struct {
	UnitOfWork       invoicing.UnitOfWork
	EventPublisher   shared.EventPublisher
	Logger           *zap.Logger
	PaymentTermsDays int
}

// InvoiceService drives the invoice lifecycle: creation, the status state
// machine, item replacement and reads. Every mutation commits the aggregate,
// its recomputed totals and one audit entry in a single transaction.
type InvoiceService struct {
	uow       invoicing.UnitOfWork
	publisher shared.EventPublisher
	logger    *zap.Logger
	termsDays int
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(cfg InvoiceServiceConfig) *InvoiceService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	termsDays := cfg.PaymentTermsDays
	if termsDays <= 0 {
		termsDays = invoicing.DefaultPaymentTermsDays
	}
	return &InvoiceService{
		uow:       cfg.UnitOfWork,
		publisher: cfg.EventPublisher,
		logger:    logger,
		termsDays: termsDays,
	}
}

// Create creates a draft invoice with a freshly allocated number
func (s *InvoiceService) Create(ctx context.Context, actorID uuid.UUID, input CreateInvoiceInput) (*invoicing.Invoice, error) {
	items, err := buildItems(input.Items)
	if err != nil {
		return nil, err
	}

	var inv *invoicing.Invoice
	err = s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		seq, err := repos.Sequences.NextInvoiceNumber(ctx, input.OrgID)
		if err != nil {
			return fmt.Errorf("failed to allocate invoice number: %w", err)
		}

		inv, err = invoicing.NewInvoice(input.OrgID, invoicing.FormatInvoiceNumber(seq),
			input.CustomerID, input.CustomerName, input.IssueDate, items)
		if err != nil {
			return err
		}
		inv.Notes = input.Notes
		if input.GatewayOrderID != "" {
			if err := inv.SetGatewayOrderID(input.GatewayOrderID); err != nil {
				return err
			}
		}

		if err := repos.Invoices.Save(ctx, inv); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		return s.appendInvoiceAudit(ctx, repos, inv, actorID, invoicing.ActivityInvoiceCreated,
			fmt.Sprintf("Invoice %s created", inv.Number), nil)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)

	s.logger.Info("Invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number),
		zap.String("org_id", inv.OrgID.String()),
		zap.String("total", inv.Total.StringFixed(2)))

	return inv, nil
}

// Send transitions a draft invoice to sent
func (s *InvoiceService) Send(ctx context.Context, orgID, invoiceID, actorID uuid.UUID) (*invoicing.Invoice, error) {
	var inv *invoicing.Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		var err error
		inv, err = repos.Invoices.FindByIDForOrg(ctx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.Send(time.Now(), s.termsDays); err != nil {
			return err
		}
		if err := repos.Invoices.SaveWithLock(ctx, inv); err != nil {
			return err
		}
		return s.appendInvoiceAudit(ctx, repos, inv, actorID, invoicing.ActivityInvoiceSent,
			fmt.Sprintf("Invoice %s sent, due %s", inv.Number, inv.DueDate.Format("2006-01-02")), nil)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)

	s.logger.Info("Invoice sent",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number))

	return inv, nil
}

// MarkPaid records a manual payment and settles the invoice
func (s *InvoiceService) MarkPaid(ctx context.Context, orgID, invoiceID, actorID uuid.UUID, input PaymentInput) (*invoicing.Invoice, error) {
	var inv *invoicing.Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		var err error
		inv, err = repos.Invoices.FindByIDForOrg(ctx, orgID, invoiceID)
		if err != nil {
			return err
		}

		payment, err := invoicing.NewPayment(orgID, inv.ID, input.Amount, input.PaymentDate,
			input.Method, input.Notes, input.GatewayPaymentID)
		if err != nil {
			return err
		}

		if err := inv.MarkPaid(payment, time.Now()); err != nil {
			return err
		}
		if err := repos.Payments.Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := repos.Invoices.SaveWithLock(ctx, inv); err != nil {
			return err
		}
		return s.appendInvoiceAudit(ctx, repos, inv, actorID, invoicing.ActivityInvoicePaid,
			fmt.Sprintf("Invoice %s paid (%s)", inv.Number, payment.Amount.StringFixed(2)), &payment.ID)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)

	s.logger.Info("Invoice paid",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number))

	return inv, nil
}

// Cancel cancels a draft or sent invoice
func (s *InvoiceService) Cancel(ctx context.Context, orgID, invoiceID, actorID uuid.UUID) (*invoicing.Invoice, error) {
	var inv *invoicing.Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		var err error
		inv, err = repos.Invoices.FindByIDForOrg(ctx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.Cancel(time.Now()); err != nil {
			return err
		}
		if err := repos.Invoices.SaveWithLock(ctx, inv); err != nil {
			return err
		}
		return s.appendInvoiceAudit(ctx, repos, inv, actorID, invoicing.ActivityInvoiceCancelled,
			fmt.Sprintf("Invoice %s cancelled", inv.Number), nil)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)

	return inv, nil
}

// ReplaceItems swaps the full line item set of a draft invoice
func (s *InvoiceService) ReplaceItems(ctx context.Context, orgID, invoiceID, actorID uuid.UUID, inputs []LineItemInput) (*invoicing.Invoice, error) {
	items, err := buildItems(inputs)
	if err != nil {
		return nil, err
	}

	var inv *invoicing.Invoice
	err = s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		var err error
		inv, err = repos.Invoices.FindByIDForOrg(ctx, orgID, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.ReplaceItems(items); err != nil {
			return err
		}
		if err := repos.Invoices.SaveWithLock(ctx, inv); err != nil {
			return err
		}
		return s.appendInvoiceAudit(ctx, repos, inv, actorID, invoicing.ActivityItemsReplaced,
			fmt.Sprintf("Invoice %s items replaced (%d items)", inv.Number, len(items)), nil)
	})
	if err != nil {
		return nil, err
	}

	return inv, nil
}

// Get returns one invoice for an organization
func (s *InvoiceService) Get(ctx context.Context, orgID, invoiceID uuid.UUID) (*invoicing.Invoice, error) {
	var inv *invoicing.Invoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		var err error
		inv, err = repos.Invoices.FindByIDForOrg(ctx, orgID, invoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns a page of invoices for an organization
func (s *InvoiceService) List(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (shared.Paginated[invoicing.Invoice], error) {
	var page shared.Paginated[invoicing.Invoice]
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		invoices, err := repos.Invoices.FindAllForOrg(ctx, orgID, filter)
		if err != nil {
			return err
		}
		total, err := repos.Invoices.CountForOrg(ctx, orgID, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(invoices, total, filter.Page, filter.PageSize)
		return nil
	})
	return page, err
}

// Delete removes an invoice and its rows
func (s *InvoiceService) Delete(ctx context.Context, orgID, invoiceID uuid.UUID) error {
	return s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		if _, err := repos.Invoices.FindByIDForOrg(ctx, orgID, invoiceID); err != nil {
			return err
		}
		return repos.Invoices.Delete(ctx, orgID, invoiceID)
	})
}

// ListAudit returns the audit trail of one invoice
func (s *InvoiceService) ListAudit(ctx context.Context, orgID, invoiceID uuid.UUID) ([]invoicing.AuditEntry, error) {
	var entries []invoicing.AuditEntry
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		if _, err := repos.Invoices.FindByIDForOrg(ctx, orgID, invoiceID); err != nil {
			return err
		}
		var err error
		entries, err = repos.Audit.FindByInvoice(ctx, orgID, invoiceID)
		return err
	})
	return entries, err
}

// appendInvoiceAudit writes one audit row inside the current transaction
func (s *InvoiceService) appendInvoiceAudit(ctx context.Context, repos invoicing.Repositories, inv *invoicing.Invoice, actorID uuid.UUID, activity invoicing.ActivityType, comment string, paymentID *uuid.UUID) error {
	entry, err := invoicing.NewAuditEntry(inv.OrgID, inv.ID, actorID, activity, comment)
	if err != nil {
		return err
	}
	if paymentID != nil {
		entry.WithPayment(*paymentID)
	}
	if err := repos.Audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// publishEvents flushes pending domain events after a successful commit.
// Publish failures are logged, never surfaced; the committed state wins.
func (s *InvoiceService) publishEvents(ctx context.Context, inv *invoicing.Invoice) {
	if s.publisher == nil {
		return
	}
	for _, event := range inv.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	inv.ClearDomainEvents()
}

// buildItems converts caller inputs into validated line items
func buildItems(inputs []LineItemInput) ([]invoicing.LineItem, error) {
	items := make([]invoicing.LineItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := invoicing.NewLineItem(in.Description, in.Quantity, in.UnitPrice, in.TaxRate)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
