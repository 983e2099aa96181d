package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/invoicehub/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderByPosition).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForOrg finds an invoice by ID within an organization
func (r *GormInvoiceRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderByPosition).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByGatewayOrderID finds an invoice by the external gateway order id.
// Webhook deliveries carry no org context, so the lookup is global.
func (r *GormInvoiceRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*invoicing.Invoice, error) {
	if gatewayOrderID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items", orderByPosition).
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForOrg finds all invoices for an organization matching the filter.
// Line items are not loaded for listings; totals live on the invoice row.
func (r *GormInvoiceRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]invoicing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("org_id = ?", orgID),
		filter,
	)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// CountForOrg counts invoices for an organization matching the filter
func (r *GormInvoiceRepository) CountForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("org_id = ?", orgID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates an invoice together with its full line item set
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	tx := r.db.WithContext(ctx)

	if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
		return err
	}
	return r.replaceItems(tx, model)
}

// SaveWithLock saves an invoice with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if the stored row changed underneath.
// All columns are written so a transition can clear nullable timestamps.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, inv *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	model.Version = inv.Version + 1
	tx := r.db.WithContext(ctx)

	result := tx.Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", inv.ID, inv.Version).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	if err := r.replaceItems(tx, model); err != nil {
		return err
	}

	inv.IncrementVersion()
	return nil
}

// Delete deletes an invoice and its line items within an organization
func (r *GormInvoiceRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)

	result := tx.Delete(&models.InvoiceModel{}, "org_id = ? AND id = ?", orgID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return tx.Where("invoice_id = ?", id).Delete(&models.InvoiceLineItemModel{}).Error
}

// replaceItems swaps the stored line item set for the model's current one.
// Items are replaced wholesale; the domain never patches individual rows.
func (r *GormInvoiceRepository) replaceItems(tx *gorm.DB, model *models.InvoiceModel) error {
	if err := tx.Where("invoice_id = ?", model.ID).Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
		return err
	}
	if len(model.Items) == 0 {
		return nil
	}
	return tx.Create(&model.Items).Error
}

// applyFilter applies filter options to the query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ? OR customer_name ILIKE ?", searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			// Overdue is a derived view over sent invoices, not a stored status.
			if status, ok := value.(string); ok && invoicing.InvoiceStatus(status) == invoicing.InvoiceStatusOverdue {
				query = query.Where("status = ? AND due_date < ?", invoicing.InvoiceStatusSent, time.Now())
			} else {
				query = query.Where("status = ?", value)
			}
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "issued_after":
			query = query.Where("issue_date >= ?", value)
		case "issued_before":
			query = query.Where("issue_date <= ?", value)
		}
	}

	return query
}

// orderByPosition keeps preloaded line items in their stored order
func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)
