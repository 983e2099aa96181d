package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository implements AuditRepository using GORM.
// The audit trail is append-only; there is no update or delete path.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts an audit entry
func (r *GormAuditRepository) Append(ctx context.Context, entry *invoicing.AuditEntry) error {
	model := models.AuditEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByInvoice returns the audit trail of an invoice in chronological order
func (r *GormAuditRepository) FindByInvoice(ctx context.Context, orgID, invoiceID uuid.UUID) ([]invoicing.AuditEntry, error) {
	var entryModels []models.AuditEntryModel
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND invoice_id = ?", orgID, invoiceID).
		Order("created_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toAuditEntries(entryModels), nil
}

// FindByRecurringInvoice returns the audit trail of a recurring invoice in
// chronological order
func (r *GormAuditRepository) FindByRecurringInvoice(ctx context.Context, orgID, recurringID uuid.UUID) ([]invoicing.AuditEntry, error) {
	var entryModels []models.AuditEntryModel
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND recurring_invoice_id = ?", orgID, recurringID).
		Order("created_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toAuditEntries(entryModels), nil
}

func toAuditEntries(entryModels []models.AuditEntryModel) []invoicing.AuditEntry {
	entries := make([]invoicing.AuditEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries
}

// Ensure GormAuditRepository implements AuditRepository
var _ invoicing.AuditRepository = (*GormAuditRepository)(nil)
