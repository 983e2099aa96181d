package handler

import (
	"context"
	"time"

	"github.com/google/uuid"

	appinvoicing "github.com/invoicehub/backend/internal/application/invoicing"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
)

// Mock repositories backing the application services under test. The mocks
// share one in-memory store so a service call sees its own earlier writes.

type mockStore struct {
	invoices  map[uuid.UUID]invoicing.Invoice
	recurring map[uuid.UUID]invoicing.RecurringInvoice
	payments  []invoicing.Payment
	audits    []invoicing.AuditEntry
	seqs      map[uuid.UUID]int64
	returnErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		invoices:  make(map[uuid.UUID]invoicing.Invoice),
		recurring: make(map[uuid.UUID]invoicing.RecurringInvoice),
		seqs:      make(map[uuid.UUID]int64),
	}
}

// mockUnitOfWork hands out repositories bound to the shared store. There is
// no rollback; handler tests only assert on responses, not store contents
// after failed transactions.
type mockUnitOfWork struct {
	store *mockStore
}

func (u *mockUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos invoicing.Repositories) error) error {
	if u.store.returnErr != nil {
		return u.store.returnErr
	}
	return fn(ctx, invoicing.Repositories{
		Invoices:  &mockInvoiceRepo{store: u.store},
		Recurring: &mockRecurringRepo{store: u.store},
		Payments:  &mockPaymentRepo{store: u.store},
		Audit:     &mockAuditRepo{store: u.store},
		Sequences: &mockSequenceRepo{store: u.store},
	})
}

type mockInvoiceRepo struct {
	store *mockStore
}

func (m *mockInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	inv, ok := m.store.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (m *mockInvoiceRepo) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*invoicing.Invoice, error) {
	inv, ok := m.store.invoices[id]
	if !ok || inv.OrgID != orgID {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (m *mockInvoiceRepo) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*invoicing.Invoice, error) {
	for _, inv := range m.store.invoices {
		if inv.GatewayOrderID == gatewayOrderID {
			found := inv
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *mockInvoiceRepo) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]invoicing.Invoice, error) {
	var out []invoicing.Invoice
	for _, inv := range m.store.invoices {
		if inv.OrgID == orgID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockInvoiceRepo) CountForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (int64, error) {
	items, _ := m.FindAllForOrg(ctx, orgID, filter)
	return int64(len(items)), nil
}

func (m *mockInvoiceRepo) Save(ctx context.Context, inv *invoicing.Invoice) error {
	m.store.invoices[inv.ID] = *inv
	return nil
}

func (m *mockInvoiceRepo) SaveWithLock(ctx context.Context, inv *invoicing.Invoice) error {
	stored, ok := m.store.invoices[inv.ID]
	if !ok || stored.Version != inv.Version {
		return shared.ErrConcurrencyConflict
	}
	inv.IncrementVersion()
	m.store.invoices[inv.ID] = *inv
	return nil
}

func (m *mockInvoiceRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	inv, ok := m.store.invoices[id]
	if !ok || inv.OrgID != orgID {
		return shared.ErrNotFound
	}
	delete(m.store.invoices, id)
	return nil
}

type mockRecurringRepo struct {
	store *mockStore
}

func (m *mockRecurringRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.RecurringInvoice, error) {
	ri, ok := m.store.recurring[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &ri, nil
}

func (m *mockRecurringRepo) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*invoicing.RecurringInvoice, error) {
	ri, ok := m.store.recurring[id]
	if !ok || ri.OrgID != orgID {
		return nil, shared.ErrNotFound
	}
	return &ri, nil
}

func (m *mockRecurringRepo) FindDue(ctx context.Context, asOf time.Time) ([]invoicing.RecurringInvoice, error) {
	var out []invoicing.RecurringInvoice
	for _, ri := range m.store.recurring {
		if ri.Status == invoicing.RecurringStatusActive && !ri.NextGenerationDate.After(asOf) {
			out = append(out, ri)
		}
	}
	return out, nil
}

func (m *mockRecurringRepo) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]invoicing.RecurringInvoice, error) {
	var out []invoicing.RecurringInvoice
	for _, ri := range m.store.recurring {
		if ri.OrgID == orgID {
			out = append(out, ri)
		}
	}
	return out, nil
}

func (m *mockRecurringRepo) CountForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (int64, error) {
	items, _ := m.FindAllForOrg(ctx, orgID, filter)
	return int64(len(items)), nil
}

func (m *mockRecurringRepo) Save(ctx context.Context, ri *invoicing.RecurringInvoice) error {
	m.store.recurring[ri.ID] = *ri
	return nil
}

func (m *mockRecurringRepo) SaveWithLock(ctx context.Context, ri *invoicing.RecurringInvoice) error {
	stored, ok := m.store.recurring[ri.ID]
	if !ok || stored.Version != ri.Version {
		return shared.ErrConcurrencyConflict
	}
	ri.IncrementVersion()
	m.store.recurring[ri.ID] = *ri
	return nil
}

type mockPaymentRepo struct {
	store *mockStore
}

func (m *mockPaymentRepo) Save(ctx context.Context, p *invoicing.Payment) error {
	m.store.payments = append(m.store.payments, *p)
	return nil
}

func (m *mockPaymentRepo) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Payment, error) {
	var out []invoicing.Payment
	for _, p := range m.store.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) ExistsByGatewayPaymentID(ctx context.Context, invoiceID uuid.UUID, gatewayPaymentID string) (bool, error) {
	for _, p := range m.store.payments {
		if p.InvoiceID == invoiceID && p.GatewayPaymentID == gatewayPaymentID {
			return true, nil
		}
	}
	return false, nil
}

type mockAuditRepo struct {
	store *mockStore
}

func (m *mockAuditRepo) Append(ctx context.Context, entry *invoicing.AuditEntry) error {
	m.store.audits = append(m.store.audits, *entry)
	return nil
}

func (m *mockAuditRepo) FindByInvoice(ctx context.Context, orgID, invoiceID uuid.UUID) ([]invoicing.AuditEntry, error) {
	var out []invoicing.AuditEntry
	for _, e := range m.store.audits {
		if e.OrgID == orgID && e.InvoiceID != nil && *e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockAuditRepo) FindByRecurringInvoice(ctx context.Context, orgID, recurringID uuid.UUID) ([]invoicing.AuditEntry, error) {
	var out []invoicing.AuditEntry
	for _, e := range m.store.audits {
		if e.OrgID == orgID && e.RecurringInvoiceID != nil && *e.RecurringInvoiceID == recurringID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockSequenceRepo struct {
	store *mockStore
}

func (m *mockSequenceRepo) NextInvoiceNumber(ctx context.Context, orgID uuid.UUID) (int64, error) {
	m.store.seqs[orgID]++
	return m.store.seqs[orgID], nil
}

// newTestInvoiceService builds an InvoiceService over the mock store
func newTestInvoiceService(store *mockStore) *appinvoicing.InvoiceService {
	return appinvoicing.NewInvoiceService(appinvoicing.InvoiceServiceConfig{
		UnitOfWork: &mockUnitOfWork{store: store},
	})
}

// newTestRecurringService builds a RecurringService over the mock store
func newTestRecurringService(store *mockStore) *appinvoicing.RecurringService {
	return appinvoicing.NewRecurringService(appinvoicing.RecurringServiceConfig{
		UnitOfWork: &mockUnitOfWork{store: store},
	})
}

// newTestWebhookService builds a WebhookService over the mock store
func newTestWebhookService(store *mockStore, secret string) *appinvoicing.WebhookService {
	return appinvoicing.NewWebhookService(appinvoicing.WebhookServiceConfig{
		Secret:     secret,
		UnitOfWork: &mockUnitOfWork{store: store},
	})
}
