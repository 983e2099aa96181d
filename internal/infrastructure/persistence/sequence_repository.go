package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"gorm.io/gorm"
)

// GormSequenceRepository allocates per-organization invoice numbers from a
// dedicated counter row. The upsert takes a row lock on the counter until the
// enclosing transaction commits, which keeps numbers strictly increasing and
// gap-minimal under concurrent invoice creation.
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// NextInvoiceNumber increments and returns the organization's counter
func (r *GormSequenceRepository) NextInvoiceNumber(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO invoice_sequences (org_id, last_value, updated_at)
		VALUES (?, 1, NOW())
		ON CONFLICT (org_id)
		DO UPDATE SET last_value = invoice_sequences.last_value + 1, updated_at = NOW()
		RETURNING last_value`, orgID).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Ensure GormSequenceRepository implements SequenceRepository
var _ invoicing.SequenceRepository = (*GormSequenceRepository)(nil)
