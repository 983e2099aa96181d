package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
)

// CreateRecurringInput carries everything needed to create a recurring invoice
type CreateRecurringInput struct {
	OrgID        uuid.UUID
	CustomerID   uuid.UUID
	CustomerName string
	Notes        string
	Items        []LineItemInput
	Frequency    invoicing.Frequency
	StartDate    time.Time
	EndDate      *time.Time
}

// RunReport summarizes one schedule engine run
type RunReport struct {
	Due       int `json:"due"`
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
}

// RecurringServiceConfig contains configuration for RecurringService
type RecurringServiceConfig struct {
	UnitOfWork     invoicing.UnitOfWork
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
}

// RecurringService manages recurring invoice templates and runs the schedule
// engine. Each generation allocates a number, materializes an invoice from
// the template, advances the schedule and writes audit rows in one
// transaction; a failing record never blocks the rest of a run.
type RecurringService struct {
	uow       invoicing.UnitOfWork
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewRecurringService creates a new RecurringService
func NewRecurringService(cfg RecurringServiceConfig) *RecurringService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecurringService{
		uow:       cfg.UnitOfWork,
		publisher: cfg.EventPublisher,
		logger:    logger,
	}
}

// Create creates an active recurring invoice
func (s *RecurringService) Create(ctx context.Context, actorID uuid.UUID, input CreateRecurringInput) (*invoicing.RecurringInvoice, error) {
	template := invoicing.InvoiceTemplate{
		CustomerID:   input.CustomerID,
		CustomerName: input.CustomerName,
		Notes:        input.Notes,
		Items:        templateItems(input.Items),
	}

	ri, err := invoicing.NewRecurringInvoice(input.OrgID, template, input.Frequency, input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		if err := repos.Recurring.Save(ctx, ri); err != nil {
			return fmt.Errorf("failed to save recurring invoice: %w", err)
		}
		return s.appendRecurringAudit(ctx, repos, ri, nil, actorID, invoicing.ActivityRecurringCreated,
			fmt.Sprintf("Recurring invoice created (%s, first generation %s)",
				ri.Frequency, ri.NextGenerationDate.Format("2006-01-02")))
	})
	if err != nil {
		return nil, err
	}

	s.publishRecurringEvents(ctx, ri)

	s.logger.Info("Recurring invoice created",
		zap.String("recurring_id", ri.ID.String()),
		zap.String("org_id", ri.OrgID.String()),
		zap.String("frequency", ri.Frequency.String()))

	return ri, nil
}

// Pause suspends generation for an active recurring invoice
func (s *RecurringService) Pause(ctx context.Context, orgID, recurringID, actorID uuid.UUID) (*invoicing.RecurringInvoice, error) {
	return s.mutate(ctx, orgID, recurringID, actorID, invoicing.ActivityRecurringPaused,
		"Recurring invoice paused", func(ri *invoicing.RecurringInvoice) { ri.Pause() })
}

// Resume reactivates a paused recurring invoice
func (s *RecurringService) Resume(ctx context.Context, orgID, recurringID, actorID uuid.UUID) (*invoicing.RecurringInvoice, error) {
	return s.mutate(ctx, orgID, recurringID, actorID, invoicing.ActivityRecurringResumed,
		"Recurring invoice resumed", func(ri *invoicing.RecurringInvoice) { ri.Resume() })
}

// Cancel finishes a recurring invoice
func (s *RecurringService) Cancel(ctx context.Context, orgID, recurringID, actorID uuid.UUID) (*invoicing.RecurringInvoice, error) {
	return s.mutate(ctx, orgID, recurringID, actorID, invoicing.ActivityRecurringCancelled,
		"Recurring invoice cancelled", func(ri *invoicing.RecurringInvoice) { ri.Cancel() })
}

// Get returns one recurring invoice for an organization
func (s *RecurringService) Get(ctx context.Context, orgID, recurringID uuid.UUID) (*invoicing.RecurringInvoice, error) {
	var ri *invoicing.RecurringInvoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		var err error
		ri, err = repos.Recurring.FindByIDForOrg(ctx, orgID, recurringID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ri, nil
}

// List returns a page of recurring invoices for an organization
func (s *RecurringService) List(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (shared.Paginated[invoicing.RecurringInvoice], error) {
	var page shared.Paginated[invoicing.RecurringInvoice]
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		items, err := repos.Recurring.FindAllForOrg(ctx, orgID, filter)
		if err != nil {
			return err
		}
		total, err := repos.Recurring.CountForOrg(ctx, orgID, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(items, total, filter.Page, filter.PageSize)
		return nil
	})
	return page, err
}

// ListAudit returns the audit trail of one recurring invoice
func (s *RecurringService) ListAudit(ctx context.Context, orgID, recurringID uuid.UUID) ([]invoicing.AuditEntry, error) {
	var entries []invoicing.AuditEntry
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		if _, err := repos.Recurring.FindByIDForOrg(ctx, orgID, recurringID); err != nil {
			return err
		}
		var err error
		entries, err = repos.Audit.FindByRecurringInvoice(ctx, orgID, recurringID)
		return err
	})
	return entries, err
}

// GenerateNow generates one invoice from an active recurring invoice on
// demand, regardless of the schedule. The schedule still advances.
func (s *RecurringService) GenerateNow(ctx context.Context, orgID, recurringID, actorID uuid.UUID) (*invoicing.Invoice, error) {
	return s.generateOne(ctx, &orgID, recurringID, actorID, time.Now(), true)
}

// RunDue generates invoices for every recurring invoice due on or before the
// given day. Each record runs in its own transaction; a failure is audited
// and the run continues. Safe to invoke concurrently: the optimistic version
// check on the recurring row makes double generation lose the race.
func (s *RecurringService) RunDue(ctx context.Context, asOf time.Time) (RunReport, error) {
	var due []invoicing.RecurringInvoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		var err error
		due, err = repos.Recurring.FindDue(ctx, asOf)
		return err
	})
	if err != nil {
		return RunReport{}, fmt.Errorf("failed to list due recurring invoices: %w", err)
	}

	report := RunReport{Due: len(due)}
	for i := range due {
		ri := &due[i]
		if _, err := s.generateOne(ctx, nil, ri.ID, invoicing.SystemActor, asOf, false); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				// Another runner got there first. Not a failure.
				s.logger.Info("Recurring invoice generated by concurrent run",
					zap.String("recurring_id", ri.ID.String()))
				continue
			}
			report.Failed++
			s.logger.Error("Recurring invoice generation failed",
				zap.String("recurring_id", ri.ID.String()),
				zap.Error(err))
			s.auditGenerationFailure(ctx, ri, err)
			continue
		}
		report.Generated++
	}

	s.logger.Info("Schedule engine run finished",
		zap.Int("due", report.Due),
		zap.Int("generated", report.Generated),
		zap.Int("failed", report.Failed))

	return report, nil
}

// generateOne materializes one invoice from a recurring invoice inside a
// single transaction. The recurring row is reloaded in the transaction and
// saved with a version check, so two concurrent generations for the same
// record produce exactly one invoice.
func (s *RecurringService) generateOne(ctx context.Context, orgID *uuid.UUID, recurringID, actorID uuid.UUID, asOf time.Time, force bool) (*invoicing.Invoice, error) {
	var (
		ri  *invoicing.RecurringInvoice
		inv *invoicing.Invoice
	)
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		var err error
		if orgID != nil {
			ri, err = repos.Recurring.FindByIDForOrg(ctx, *orgID, recurringID)
		} else {
			ri, err = repos.Recurring.FindByID(ctx, recurringID)
		}
		if err != nil {
			return err
		}

		if ri.Status != invoicing.RecurringStatusActive {
			return shared.NewDomainError("INVALID_TRANSITION",
				fmt.Sprintf("Cannot generate from a %s recurring invoice", ri.Status))
		}
		generationDate := ri.NextGenerationDate
		if force {
			generationDate = asOf
		} else if !ri.IsDue(asOf) {
			// Reloaded state may differ from the listing that queued us.
			return shared.NewDomainError("INVALID_TRANSITION", "Recurring invoice is not due")
		}

		seq, err := repos.Sequences.NextInvoiceNumber(ctx, ri.OrgID)
		if err != nil {
			return fmt.Errorf("failed to allocate invoice number: %w", err)
		}

		items, err := ri.Template.LineItems()
		if err != nil {
			return err
		}
		inv, err = invoicing.NewInvoice(ri.OrgID, invoicing.FormatInvoiceNumber(seq),
			ri.Template.CustomerID, ri.Template.CustomerName, generationDate, items)
		if err != nil {
			return err
		}
		inv.Notes = ri.Template.Notes
		if ri.Template.Currency != "" {
			inv.Currency = ri.Template.Currency
		}

		if err := repos.Invoices.Save(ctx, inv); err != nil {
			return fmt.Errorf("failed to save generated invoice: %w", err)
		}

		ri.Advance()
		ri.AddDomainEvent(invoicing.NewRecurringInvoiceGeneratedEvent(ri, inv, generationDate))
		if err := repos.Recurring.SaveWithLock(ctx, ri); err != nil {
			return err
		}

		return s.appendRecurringAudit(ctx, repos, ri, &inv.ID, actorID, invoicing.ActivityRecurringGenerated,
			fmt.Sprintf("Invoice %s generated for %s", inv.Number, generationDate.Format("2006-01-02")))
	})
	if err != nil {
		return nil, err
	}

	s.publishRecurringEvents(ctx, ri)
	s.publishInvoiceEvents(ctx, inv)

	s.logger.Info("Invoice generated from recurring invoice",
		zap.String("recurring_id", ri.ID.String()),
		zap.String("invoice_id", inv.ID.String()),
		zap.String("number", inv.Number))

	return inv, nil
}

// mutate loads, mutates and saves one recurring invoice with an audit row
func (s *RecurringService) mutate(ctx context.Context, orgID, recurringID, actorID uuid.UUID, activity invoicing.ActivityType, comment string, apply func(*invoicing.RecurringInvoice)) (*invoicing.RecurringInvoice, error) {
	var ri *invoicing.RecurringInvoice
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		var err error
		ri, err = repos.Recurring.FindByIDForOrg(ctx, orgID, recurringID)
		if err != nil {
			return err
		}
		apply(ri)
		if err := repos.Recurring.SaveWithLock(ctx, ri); err != nil {
			return err
		}
		return s.appendRecurringAudit(ctx, repos, ri, nil, actorID, activity, comment)
	})
	if err != nil {
		return nil, err
	}

	s.publishRecurringEvents(ctx, ri)

	return ri, nil
}

// auditGenerationFailure records a failed generation in its own transaction,
// outside the rolled-back one.
func (s *RecurringService) auditGenerationFailure(ctx context.Context, ri *invoicing.RecurringInvoice, cause error) {
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		return s.appendRecurringAudit(ctx, repos, ri, nil, invoicing.SystemActor,
			invoicing.ActivityGenerationFailed,
			fmt.Sprintf("Generation failed: %v", cause))
	})
	if err != nil {
		s.logger.Error("Failed to audit generation failure",
			zap.String("recurring_id", ri.ID.String()),
			zap.Error(err))
	}
}

func (s *RecurringService) appendRecurringAudit(ctx context.Context, repos invoicing.Repositories, ri *invoicing.RecurringInvoice, invoiceID *uuid.UUID, actorID uuid.UUID, activity invoicing.ActivityType, comment string) error {
	entry, err := invoicing.NewRecurringAuditEntry(ri.OrgID, ri.ID, invoiceID, actorID, activity, comment)
	if err != nil {
		return err
	}
	if err := repos.Audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (s *RecurringService) publishRecurringEvents(ctx context.Context, ri *invoicing.RecurringInvoice) {
	if s.publisher == nil || ri == nil {
		return
	}
	for _, event := range ri.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	ri.ClearDomainEvents()
}

func (s *RecurringService) publishInvoiceEvents(ctx context.Context, inv *invoicing.Invoice) {
	if s.publisher == nil || inv == nil {
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

// templateItems converts caller line item inputs into template snapshots
func templateItems(inputs []LineItemInput) []invoicing.TemplateItem {
	items := make([]invoicing.TemplateItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, invoicing.TemplateItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			TaxRate:     in.TaxRate,
		})
	}
	return items
}
