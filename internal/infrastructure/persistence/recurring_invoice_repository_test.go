package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMockRecurringRepository(t *testing.T) (*GormRecurringInvoiceRepository, sqlmock.Sqlmock, *sql.DB) {
	gormDB, mock, mockDB := newMockDB(t)
	return NewGormRecurringInvoiceRepository(gormDB), mock, mockDB
}

const recurringTemplateJSON = `{
	"customer_id": "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d",
	"customer_name": "Acme Corp",
	"currency": "USD",
	"notes": "",
	"items": [{"description": "Hosting", "quantity": "1", "unit_price": "50", "tax_rate": "10"}]
}`

func recurringRows(recurringID, orgID uuid.UUID, status invoicing.RecurringStatus, next time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "org_id", "version", "template", "frequency", "start_date",
		"next_generation_date", "status",
	}).AddRow(
		recurringID, orgID, 1, recurringTemplateJSON, "monthly",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), next, status,
	)
}

func TestGormRecurringInvoiceRepository_FindByID(t *testing.T) {
	t.Run("decodes stored template snapshot", func(t *testing.T) {
		repo, mock, mockDB := newMockRecurringRepository(t)
		defer mockDB.Close()

		recurringID := uuid.New()
		orgID := uuid.New()
		next := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT \* FROM "recurring_invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(recurringID, 1).
			WillReturnRows(recurringRows(recurringID, orgID, invoicing.RecurringStatusActive, next))

		ri, err := repo.FindByID(context.Background(), recurringID)

		assert.NoError(t, err)
		require.NotNil(t, ri)
		assert.Equal(t, recurringID, ri.ID)
		assert.Equal(t, "Acme Corp", ri.Template.CustomerName)
		require.Len(t, ri.Template.Items, 1)
		assert.True(t, ri.Template.Items[0].UnitPrice.Equal(decimal.NewFromInt(50)))
		assert.Equal(t, invoicing.FrequencyMonthly, ri.Frequency)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails on corrupt template snapshot", func(t *testing.T) {
		repo, mock, mockDB := newMockRecurringRepository(t)
		defer mockDB.Close()

		recurringID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "org_id", "version", "template", "frequency", "start_date", "next_generation_date", "status"}).
			AddRow(recurringID, uuid.New(), 1, "{not json", "monthly",
				time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "active")

		mock.ExpectQuery(`SELECT \* FROM "recurring_invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(recurringID, 1).
			WillReturnRows(rows)

		ri, err := repo.FindByID(context.Background(), recurringID)

		assert.Nil(t, ri)
		assert.ErrorContains(t, err, "failed to decode invoice template")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing record", func(t *testing.T) {
		repo, mock, mockDB := newMockRecurringRepository(t)
		defer mockDB.Close()

		recurringID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "recurring_invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(recurringID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		ri, err := repo.FindByID(context.Background(), recurringID)

		assert.Nil(t, ri)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormRecurringInvoiceRepository_FindDue(t *testing.T) {
	t.Run("queries active records due on or before the day", func(t *testing.T) {
		repo, mock, mockDB := newMockRecurringRepository(t)
		defer mockDB.Close()

		asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		recurringID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "recurring_invoices" WHERE status = \$1 AND next_generation_date <= \$2 ORDER BY next_generation_date ASC`).
			WithArgs(string(invoicing.RecurringStatusActive), asOf).
			WillReturnRows(recurringRows(recurringID, uuid.New(), invoicing.RecurringStatusActive,
				time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

		due, err := repo.FindDue(context.Background(), asOf)

		assert.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, recurringID, due[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty slice when nothing is due", func(t *testing.T) {
		repo, mock, mockDB := newMockRecurringRepository(t)
		defer mockDB.Close()

		asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT \* FROM "recurring_invoices" WHERE status = \$1 AND next_generation_date <= \$2`).
			WithArgs(string(invoicing.RecurringStatusActive), asOf).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		due, err := repo.FindDue(context.Background(), asOf)

		assert.NoError(t, err)
		assert.Empty(t, due)
	})
}

func TestGormRecurringInvoiceRepository_SaveWithLock(t *testing.T) {
	newActive := func(t *testing.T) *invoicing.RecurringInvoice {
		t.Helper()
		template := invoicing.InvoiceTemplate{
			CustomerID:   uuid.New(),
			CustomerName: "Acme Corp",
			Items: []invoicing.TemplateItem{
				{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50), TaxRate: decimal.NewFromInt(10)},
			},
		}
		ri, err := invoicing.NewRecurringInvoice(uuid.New(), template, invoicing.FrequencyMonthly,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
		return ri
	}

	t.Run("updates row and bumps version on match", func(t *testing.T) {
		repo, mock, mockDB := newMockRecurringRepository(t)
		defer mockDB.Close()

		ri := newActive(t)
		require.Equal(t, 1, ri.Version)

		mock.ExpectExec(`UPDATE "recurring_invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), ri)

		assert.NoError(t, err)
		assert.Equal(t, 2, ri.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns concurrency conflict when version changed", func(t *testing.T) {
		repo, mock, mockDB := newMockRecurringRepository(t)
		defer mockDB.Close()

		ri := newActive(t)

		mock.ExpectExec(`UPDATE "recurring_invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), ri)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 1, ri.Version, "version must not advance on conflict")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
