package invoicing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
)

// fakeState is the shared in-memory storage behind the fake repositories.
// Finds return copies and saves store copies, mirroring a real repository
// hydrating a fresh aggregate per load.
type fakeState struct {
	invoices  map[uuid.UUID]invoicing.Invoice
	recurring map[uuid.UUID]invoicing.RecurringInvoice
	payments  []invoicing.Payment
	audits    []invoicing.AuditEntry
	seqs      map[uuid.UUID]int64
}

func newFakeState() *fakeState {
	return &fakeState{
		invoices:  make(map[uuid.UUID]invoicing.Invoice),
		recurring: make(map[uuid.UUID]invoicing.RecurringInvoice),
		seqs:      make(map[uuid.UUID]int64),
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.recurring {
		c.recurring[k] = v
	}
	for k, v := range s.seqs {
		c.seqs[k] = v
	}
	c.payments = append(c.payments, s.payments...)
	c.audits = append(c.audits, s.audits...)
	return c
}

// fakeHooks injects one-shot failures into specific repository calls
type fakeHooks struct {
	failNextSequence     error
	failNextSaveWithLock error
}

// fakeUnitOfWork runs the function against the shared state and restores a
// snapshot when it errors, approximating transaction rollback.
type fakeUnitOfWork struct {
	mu    sync.Mutex
	state *fakeState
	hooks *fakeHooks
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{state: newFakeState(), hooks: &fakeHooks{}}
}

func (u *fakeUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos invoicing.Repositories) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	snapshot := u.state.clone()
	repos := invoicing.Repositories{
		Invoices:  &fakeInvoiceRepo{state: u.state, hooks: u.hooks},
		Recurring: &fakeRecurringRepo{state: u.state, hooks: u.hooks},
		Payments:  &fakePaymentRepo{state: u.state},
		Audit:     &fakeAuditRepo{state: u.state},
		Sequences: &fakeSequenceRepo{state: u.state, hooks: u.hooks},
	}
	if err := fn(ctx, repos); err != nil {
		*u.state = *snapshot
		return err
	}
	return nil
}

type fakeInvoiceRepo struct {
	state *fakeState
	hooks *fakeHooks
}

func (r *fakeInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	inv, ok := r.state.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (r *fakeInvoiceRepo) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*invoicing.Invoice, error) {
	inv, ok := r.state.invoices[id]
	if !ok || inv.OrgID != orgID {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (r *fakeInvoiceRepo) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*invoicing.Invoice, error) {
	for _, inv := range r.state.invoices {
		if inv.GatewayOrderID == gatewayOrderID {
			found := inv
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeInvoiceRepo) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]invoicing.Invoice, error) {
	var out []invoicing.Invoice
	for _, inv := range r.state.invoices {
		if inv.OrgID == orgID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) CountForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (int64, error) {
	items, _ := r.FindAllForOrg(ctx, orgID, filter)
	return int64(len(items)), nil
}

func (r *fakeInvoiceRepo) Save(ctx context.Context, inv *invoicing.Invoice) error {
	r.state.invoices[inv.ID] = *inv
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(ctx context.Context, inv *invoicing.Invoice) error {
	if err := r.hooks.takeSaveWithLockFailure(); err != nil {
		return err
	}
	stored, ok := r.state.invoices[inv.ID]
	if !ok || stored.Version != inv.Version {
		return shared.ErrConcurrencyConflict
	}
	inv.IncrementVersion()
	r.state.invoices[inv.ID] = *inv
	return nil
}

func (r *fakeInvoiceRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	delete(r.state.invoices, id)
	return nil
}

type fakeRecurringRepo struct {
	state *fakeState
	hooks *fakeHooks
}

func (r *fakeRecurringRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.RecurringInvoice, error) {
	ri, ok := r.state.recurring[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &ri, nil
}

func (r *fakeRecurringRepo) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*invoicing.RecurringInvoice, error) {
	ri, ok := r.state.recurring[id]
	if !ok || ri.OrgID != orgID {
		return nil, shared.ErrNotFound
	}
	return &ri, nil
}

func (r *fakeRecurringRepo) FindDue(ctx context.Context, asOf time.Time) ([]invoicing.RecurringInvoice, error) {
	var out []invoicing.RecurringInvoice
	for _, ri := range r.state.recurring {
		if ri.Status == invoicing.RecurringStatusActive && !ri.NextGenerationDate.After(asOf) {
			out = append(out, ri)
		}
	}
	return out, nil
}

func (r *fakeRecurringRepo) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]invoicing.RecurringInvoice, error) {
	var out []invoicing.RecurringInvoice
	for _, ri := range r.state.recurring {
		if ri.OrgID == orgID {
			out = append(out, ri)
		}
	}
	return out, nil
}

func (r *fakeRecurringRepo) CountForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (int64, error) {
	items, _ := r.FindAllForOrg(ctx, orgID, filter)
	return int64(len(items)), nil
}

func (r *fakeRecurringRepo) Save(ctx context.Context, ri *invoicing.RecurringInvoice) error {
	r.state.recurring[ri.ID] = *ri
	return nil
}

func (r *fakeRecurringRepo) SaveWithLock(ctx context.Context, ri *invoicing.RecurringInvoice) error {
	if err := r.hooks.takeSaveWithLockFailure(); err != nil {
		return err
	}
	stored, ok := r.state.recurring[ri.ID]
	if !ok || stored.Version != ri.Version {
		return shared.ErrConcurrencyConflict
	}
	ri.IncrementVersion()
	r.state.recurring[ri.ID] = *ri
	return nil
}

type fakePaymentRepo struct {
	state *fakeState
}

func (r *fakePaymentRepo) Save(ctx context.Context, p *invoicing.Payment) error {
	r.state.payments = append(r.state.payments, *p)
	return nil
}

func (r *fakePaymentRepo) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Payment, error) {
	var out []invoicing.Payment
	for _, p := range r.state.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ExistsByGatewayPaymentID(ctx context.Context, invoiceID uuid.UUID, gatewayPaymentID string) (bool, error) {
	for _, p := range r.state.payments {
		if p.InvoiceID == invoiceID && p.GatewayPaymentID == gatewayPaymentID {
			return true, nil
		}
	}
	return false, nil
}

type fakeAuditRepo struct {
	state *fakeState
}

func (r *fakeAuditRepo) Append(ctx context.Context, entry *invoicing.AuditEntry) error {
	r.state.audits = append(r.state.audits, *entry)
	return nil
}

func (r *fakeAuditRepo) FindByInvoice(ctx context.Context, orgID, invoiceID uuid.UUID) ([]invoicing.AuditEntry, error) {
	var out []invoicing.AuditEntry
	for _, e := range r.state.audits {
		if e.OrgID == orgID && e.InvoiceID != nil && *e.InvoiceID == invoiceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) FindByRecurringInvoice(ctx context.Context, orgID, recurringID uuid.UUID) ([]invoicing.AuditEntry, error) {
	var out []invoicing.AuditEntry
	for _, e := range r.state.audits {
		if e.OrgID == orgID && e.RecurringInvoiceID != nil && *e.RecurringInvoiceID == recurringID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeSequenceRepo struct {
	state *fakeState
	hooks *fakeHooks
}

func (r *fakeSequenceRepo) NextInvoiceNumber(ctx context.Context, orgID uuid.UUID) (int64, error) {
	if err := r.hooks.failNextSequence; err != nil {
		r.hooks.failNextSequence = nil
		return 0, err
	}
	r.state.seqs[orgID]++
	return r.state.seqs[orgID], nil
}

func (h *fakeHooks) takeSaveWithLockFailure() error {
	if err := h.failNextSaveWithLock; err != nil {
		h.failNextSaveWithLock = nil
		return err
	}
	return nil
}

// fakePublisher collects published domain events
type fakePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *fakePublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

func (p *fakePublisher) hasEventType(eventType string) bool {
	for _, t := range p.eventTypes() {
		if t == eventType {
			return true
		}
	}
	return false
}

// fakeIdempotencyStore is an in-memory shared.IdempotencyStore
type fakeIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) Unmark(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }
