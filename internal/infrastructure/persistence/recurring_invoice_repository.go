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
)

// GormRecurringInvoiceRepository implements RecurringInvoiceRepository using GORM
type GormRecurringInvoiceRepository struct {
	db *gorm.DB
}

// NewGormRecurringInvoiceRepository creates a new GormRecurringInvoiceRepository
func NewGormRecurringInvoiceRepository(db *gorm.DB) *GormRecurringInvoiceRepository {
	return &GormRecurringInvoiceRepository{db: db}
}

// FindByID finds a recurring invoice by its ID
func (r *GormRecurringInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.RecurringInvoice, error) {
	var model models.RecurringInvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByIDForOrg finds a recurring invoice by ID within an organization
func (r *GormRecurringInvoiceRepository) FindByIDForOrg(ctx context.Context, orgID, id uuid.UUID) (*invoicing.RecurringInvoice, error) {
	var model models.RecurringInvoiceModel
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindDue returns active recurring invoices due on or before the given day,
// across all organizations, oldest schedule first.
func (r *GormRecurringInvoiceRepository) FindDue(ctx context.Context, asOf time.Time) ([]invoicing.RecurringInvoice, error) {
	var recurringModels []models.RecurringInvoiceModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_generation_date <= ?", invoicing.RecurringStatusActive, asOf).
		Order("next_generation_date ASC").
		Find(&recurringModels).Error; err != nil {
		return nil, err
	}
	return r.toDomainSlice(recurringModels)
}

// FindAllForOrg finds all recurring invoices for an organization matching the filter
func (r *GormRecurringInvoiceRepository) FindAllForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) ([]invoicing.RecurringInvoice, error) {
	var recurringModels []models.RecurringInvoiceModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.RecurringInvoiceModel{}).Where("org_id = ?", orgID),
		filter,
	)

	if err := query.Find(&recurringModels).Error; err != nil {
		return nil, err
	}
	return r.toDomainSlice(recurringModels)
}

// CountForOrg counts recurring invoices for an organization matching the filter
func (r *GormRecurringInvoiceRepository) CountForOrg(ctx context.Context, orgID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.RecurringInvoiceModel{}).Where("org_id = ?", orgID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a recurring invoice
func (r *GormRecurringInvoiceRepository) Save(ctx context.Context, ri *invoicing.RecurringInvoice) error {
	model, err := models.RecurringInvoiceModelFromDomain(ri)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves a recurring invoice with optimistic locking (version check).
// Returns shared.ErrConcurrencyConflict if the stored row changed underneath.
// All columns are written so resume can clear the paused timestamp.
func (r *GormRecurringInvoiceRepository) SaveWithLock(ctx context.Context, ri *invoicing.RecurringInvoice) error {
	model, err := models.RecurringInvoiceModelFromDomain(ri)
	if err != nil {
		return err
	}
	model.Version = ri.Version + 1

	result := r.db.WithContext(ctx).
		Model(&models.RecurringInvoiceModel{}).
		Where("id = ? AND version = ?", ri.ID, ri.Version).
		Select("*").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	ri.IncrementVersion()
	return nil
}

// toDomainSlice converts persistence models, failing on the first bad template
func (r *GormRecurringInvoiceRepository) toDomainSlice(recurringModels []models.RecurringInvoiceModel) ([]invoicing.RecurringInvoice, error) {
	result := make([]invoicing.RecurringInvoice, len(recurringModels))
	for i, model := range recurringModels {
		ri, err := model.ToDomain()
		if err != nil {
			return nil, err
		}
		result[i] = *ri
	}
	return result, nil
}

// applyFilter applies filter options to the query
func (r *GormRecurringInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, RecurringInvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormRecurringInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "frequency":
			query = query.Where("frequency = ?", value)
		}
	}
	return query
}

// Ensure GormRecurringInvoiceRepository implements RecurringInvoiceRepository
var _ invoicing.RecurringInvoiceRepository = (*GormRecurringInvoiceRepository)(nil)
