package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	OrgAggregateModel
	Number           string                  `gorm:"type:varchar(20);not null;uniqueIndex:idx_invoices_org_number,priority:2"`
	CustomerID       uuid.UUID               `gorm:"type:uuid;not null;index"`
	CustomerName     string                  `gorm:"type:varchar(200);not null"`
	Currency         valueobject.Currency    `gorm:"type:varchar(3);not null;default:'USD'"`
	Subtotal         decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	TaxTotal         decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Total            decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Status           invoicing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	IssueDate        time.Time               `gorm:"not null"`
	DueDate          *time.Time              `gorm:"index"`
	Notes            string                  `gorm:"type:text"`
	GatewayOrderID   string                  `gorm:"type:varchar(100);index"`
	GatewayPaymentID string                  `gorm:"type:varchar(100)"`
	SentAt           *time.Time
	PaidAt           *time.Time
	CancelledAt      *time.Time
	Items            []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	inv := &invoicing.Invoice{
		Number:           m.Number,
		CustomerID:       m.CustomerID,
		CustomerName:     m.CustomerName,
		Currency:         m.Currency,
		Subtotal:         m.Subtotal,
		TaxTotal:         m.TaxTotal,
		Total:            m.Total,
		Status:           m.Status,
		IssueDate:        m.IssueDate,
		DueDate:          m.DueDate,
		Notes:            m.Notes,
		GatewayOrderID:   m.GatewayOrderID,
		GatewayPaymentID: m.GatewayPaymentID,
		SentAt:           m.SentAt,
		PaidAt:           m.PaidAt,
		CancelledAt:      m.CancelledAt,
	}
	m.PopulateOrgAggregateRoot(&inv.OrgAggregateRoot)
	inv.Items = make([]invoicing.LineItem, len(m.Items))
	for i, item := range m.Items {
		inv.Items[i] = *item.ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainOrgAggregateRoot(inv.OrgAggregateRoot)
	m.Number = inv.Number
	m.CustomerID = inv.CustomerID
	m.CustomerName = inv.CustomerName
	m.Currency = inv.Currency
	m.Subtotal = inv.Subtotal
	m.TaxTotal = inv.TaxTotal
	m.Total = inv.Total
	m.Status = inv.Status
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.Notes = inv.Notes
	m.GatewayOrderID = inv.GatewayOrderID
	m.GatewayPaymentID = inv.GatewayPaymentID
	m.SentAt = inv.SentAt
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt
	m.Items = make([]InvoiceLineItemModel, len(inv.Items))
	for i, item := range inv.Items {
		m.Items[i] = *InvoiceLineItemModelFromDomain(&item)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceLineItemModel is the persistence model for the LineItem entity.
type InvoiceLineItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *InvoiceLineItemModel) ToDomain() *invoicing.LineItem {
	return &invoicing.LineItem{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		Position:    m.Position,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		TaxRate:     m.TaxRate,
		LineTotal:   m.LineTotal,
	}
}

// InvoiceLineItemModelFromDomain creates a new persistence model from a domain LineItem.
func InvoiceLineItemModelFromDomain(item *invoicing.LineItem) *InvoiceLineItemModel {
	return &InvoiceLineItemModel{
		ID:          item.ID,
		InvoiceID:   item.InvoiceID,
		Position:    item.Position,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		TaxRate:     item.TaxRate,
		LineTotal:   item.LineTotal,
	}
}

// RecurringInvoiceModel is the persistence model for the RecurringInvoice
// aggregate root. The invoice template is stored as a JSON snapshot.
type RecurringInvoiceModel struct {
	OrgAggregateModel
	TemplateJSON       string              `gorm:"column:template;type:jsonb;not null"`
	Frequency          invoicing.Frequency `gorm:"type:varchar(20);not null"`
	StartDate          time.Time           `gorm:"not null"`
	EndDate            *time.Time
	NextGenerationDate time.Time                 `gorm:"not null;index"`
	Status             invoicing.RecurringStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	PausedAt           *time.Time
	FinishedAt         *time.Time
}

// TableName returns the table name for GORM
func (RecurringInvoiceModel) TableName() string {
	return "recurring_invoices"
}

// ToDomain converts the persistence model to a domain RecurringInvoice.
// Fails when the stored template snapshot cannot be decoded.
func (m *RecurringInvoiceModel) ToDomain() (*invoicing.RecurringInvoice, error) {
	var template invoicing.InvoiceTemplate
	if err := json.Unmarshal([]byte(m.TemplateJSON), &template); err != nil {
		return nil, fmt.Errorf("failed to decode invoice template for recurring invoice %s: %w", m.ID, err)
	}

	ri := &invoicing.RecurringInvoice{
		Template:           template,
		Frequency:          m.Frequency,
		StartDate:          m.StartDate,
		EndDate:            m.EndDate,
		NextGenerationDate: m.NextGenerationDate,
		Status:             m.Status,
		PausedAt:           m.PausedAt,
		FinishedAt:         m.FinishedAt,
	}
	m.PopulateOrgAggregateRoot(&ri.OrgAggregateRoot)
	return ri, nil
}

// FromDomain populates the persistence model from a domain RecurringInvoice.
func (m *RecurringInvoiceModel) FromDomain(ri *invoicing.RecurringInvoice) error {
	templateJSON, err := json.Marshal(ri.Template)
	if err != nil {
		return fmt.Errorf("failed to encode invoice template: %w", err)
	}

	m.FromDomainOrgAggregateRoot(ri.OrgAggregateRoot)
	m.TemplateJSON = string(templateJSON)
	m.Frequency = ri.Frequency
	m.StartDate = ri.StartDate
	m.EndDate = ri.EndDate
	m.NextGenerationDate = ri.NextGenerationDate
	m.Status = ri.Status
	m.PausedAt = ri.PausedAt
	m.FinishedAt = ri.FinishedAt
	return nil
}

// RecurringInvoiceModelFromDomain creates a new persistence model from a
// domain RecurringInvoice.
func RecurringInvoiceModelFromDomain(ri *invoicing.RecurringInvoice) (*RecurringInvoiceModel, error) {
	m := &RecurringInvoiceModel{}
	if err := m.FromDomain(ri); err != nil {
		return nil, err
	}
	return m, nil
}

// PaymentModel is the persistence model for the Payment entity.
type PaymentModel struct {
	BaseModel
	OrgID            uuid.UUID               `gorm:"type:uuid;not null;index"`
	InvoiceID        uuid.UUID               `gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Currency         valueobject.Currency    `gorm:"type:varchar(3);not null;default:'USD'"`
	PaymentDate      time.Time               `gorm:"not null"`
	Method           invoicing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Notes            string                  `gorm:"type:text"`
	GatewayPaymentID string                  `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() *invoicing.Payment {
	return &invoicing.Payment{
		BaseEntity:       m.BaseModel.ToDomain(),
		OrgID:            m.OrgID,
		InvoiceID:        m.InvoiceID,
		Amount:           m.Amount,
		Currency:         m.Currency,
		PaymentDate:      m.PaymentDate,
		Method:           m.Method,
		Notes:            m.Notes,
		GatewayPaymentID: m.GatewayPaymentID,
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *invoicing.Payment) *PaymentModel {
	m := &PaymentModel{
		OrgID:            p.OrgID,
		InvoiceID:        p.InvoiceID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		PaymentDate:      p.PaymentDate,
		Method:           p.Method,
		Notes:            p.Notes,
		GatewayPaymentID: p.GatewayPaymentID,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// AuditEntryModel is the persistence model for the append-only audit trail.
// Rows are inserted once and never updated or deleted.
type AuditEntryModel struct {
	ID                 uuid.UUID              `gorm:"type:uuid;primary_key"`
	OrgID              uuid.UUID              `gorm:"type:uuid;not null;index"`
	InvoiceID          *uuid.UUID             `gorm:"type:uuid;index"`
	RecurringInvoiceID *uuid.UUID             `gorm:"type:uuid;index"`
	PaymentID          *uuid.UUID             `gorm:"type:uuid"`
	ActorID            uuid.UUID              `gorm:"type:uuid;not null"`
	Activity           invoicing.ActivityType `gorm:"type:varchar(40);not null;index"`
	Comment            string                 `gorm:"type:text"`
	CreatedAt          time.Time              `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "audit_entries"
}

// ToDomain converts the persistence model to a domain AuditEntry.
func (m *AuditEntryModel) ToDomain() *invoicing.AuditEntry {
	return &invoicing.AuditEntry{
		ID:                 m.ID,
		OrgID:              m.OrgID,
		InvoiceID:          m.InvoiceID,
		RecurringInvoiceID: m.RecurringInvoiceID,
		PaymentID:          m.PaymentID,
		ActorID:            m.ActorID,
		Activity:           m.Activity,
		Comment:            m.Comment,
		CreatedAt:          m.CreatedAt,
	}
}

// AuditEntryModelFromDomain creates a new persistence model from a domain AuditEntry.
func AuditEntryModelFromDomain(e *invoicing.AuditEntry) *AuditEntryModel {
	return &AuditEntryModel{
		ID:                 e.ID,
		OrgID:              e.OrgID,
		InvoiceID:          e.InvoiceID,
		RecurringInvoiceID: e.RecurringInvoiceID,
		PaymentID:          e.PaymentID,
		ActorID:            e.ActorID,
		Activity:           e.Activity,
		Comment:            e.Comment,
		CreatedAt:          e.CreatedAt,
	}
}

// InvoiceSequenceModel is the per-organization invoice number counter row.
type InvoiceSequenceModel struct {
	OrgID     uuid.UUID `gorm:"type:uuid;primary_key"`
	LastValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceSequenceModel) TableName() string {
	return "invoice_sequences"
}
