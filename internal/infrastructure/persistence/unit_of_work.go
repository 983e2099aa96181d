package persistence

import (
	"context"

	"github.com/invoicehub/backend/internal/domain/invoicing"
	"gorm.io/gorm"
)

// GormUnitOfWork implements invoicing.UnitOfWork on a single GORM connection.
// Do binds fresh repositories to one database transaction; the callback's
// error rolls everything back, nil commits.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Do runs fn inside a database transaction with transaction-bound repositories
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos invoicing.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := invoicing.Repositories{
			Invoices:  NewGormInvoiceRepository(tx),
			Recurring: NewGormRecurringInvoiceRepository(tx),
			Payments:  NewGormPaymentRepository(tx),
			Audit:     NewGormAuditRepository(tx),
			Sequences: NewGormSequenceRepository(tx),
		}
		return fn(ctx, repos)
	})
}

// Ensure GormUnitOfWork implements UnitOfWork
var _ invoicing.UnitOfWork = (*GormUnitOfWork)(nil)
