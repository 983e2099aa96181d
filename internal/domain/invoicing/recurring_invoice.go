package invoicing

import (
	"time"

	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/invoicehub/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency represents the generation cadence of a recurring invoice
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// IsValid checks if the frequency is a known Frequency
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// String returns the string representation of Frequency
func (f Frequency) String() string {
	return string(f)
}

// months returns the calendar-month span of the frequency, 0 for weekly
func (f Frequency) months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	}
	return 0
}

// NextDate advances a generation date by one period. Weekly adds seven days;
// the month-based frequencies add calendar months, clamping to the last
// valid day of the target month (Jan 31 monthly advances to Feb 28/29, not
// Mar 2). The advance is always relative to the date being advanced, so a
// clamped date does not later drift back to the original day of month.
func (f Frequency) NextDate(from time.Time) time.Time {
	if f == FrequencyWeekly {
		return from.AddDate(0, 0, 7)
	}
	return addMonthsClamped(from, f.months())
}

// addMonthsClamped adds calendar months, clamping the day to the end of the
// target month when the source day does not exist there.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	// Normalize to the first of the target month, then clamp the day.
	first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
	first = first.AddDate(0, months, 0)
	last := daysInMonth(first.Year(), first.Month())
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysInMonth returns the number of days in the given month
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// RecurringStatus represents the status of a recurring invoice
type RecurringStatus string

const (
	RecurringStatusActive   RecurringStatus = "active"
	RecurringStatusPaused   RecurringStatus = "paused"
	RecurringStatusFinished RecurringStatus = "finished"
)

// IsValid checks if the status is a known RecurringStatus
func (s RecurringStatus) IsValid() bool {
	switch s {
	case RecurringStatusActive, RecurringStatusPaused, RecurringStatusFinished:
		return true
	}
	return false
}

// TemplateItem is a line item snapshot inside an invoice template
type TemplateItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// InvoiceTemplate is the snapshot of invoice-level fields a recurring
// invoice materializes new instances from. Dates and the invoice number are
// deliberately absent; they are assigned at generation time.
type InvoiceTemplate struct {
	CustomerID   uuid.UUID            `json:"customer_id"`
	CustomerName string               `json:"customer_name"`
	Currency     valueobject.Currency `json:"currency"`
	Notes        string               `json:"notes"`
	Items        []TemplateItem       `json:"items"`
}

// LineItems materializes fresh line items from the template snapshot
func (t InvoiceTemplate) LineItems() ([]LineItem, error) {
	items := make([]LineItem, 0, len(t.Items))
	for _, ti := range t.Items {
		item, err := NewLineItem(ti.Description, ti.Quantity, ti.UnitPrice, ti.TaxRate)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Validate checks the template can produce a valid invoice
func (t InvoiceTemplate) Validate() error {
	if t.CustomerID == uuid.Nil {
		return shared.NewDomainError("VALIDATION", "Template customer ID cannot be empty")
	}
	if len(t.Items) == 0 {
		return shared.NewDomainError("VALIDATION", "Template must have at least one item")
	}
	items, err := t.LineItems()
	if err != nil {
		return err
	}
	_, err = ComputeTotals(items)
	return err
}

// RecurringInvoice is a template plus schedule that periodically spawns
// concrete invoices. The schedule engine advances NextGenerationDate; users
// pause, resume and cancel.
type RecurringInvoice struct {
	shared.OrgAggregateRoot
	Template           InvoiceTemplate
	Frequency          Frequency
	StartDate          time.Time
	EndDate            *time.Time
	NextGenerationDate time.Time
	Status             RecurringStatus
	PausedAt           *time.Time
	FinishedAt         *time.Time
}

// NewRecurringInvoice creates an active recurring invoice whose first
// generation is due on the start date.
func NewRecurringInvoice(orgID uuid.UUID, template InvoiceTemplate, frequency Frequency, startDate time.Time, endDate *time.Time) (*RecurringInvoice, error) {
	if !frequency.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "Unknown frequency")
	}
	if startDate.IsZero() {
		return nil, shared.NewDomainError("VALIDATION", "Start date cannot be empty")
	}
	if endDate != nil && endDate.Before(startDate) {
		return nil, shared.NewDomainError("VALIDATION", "End date cannot be before start date")
	}
	if err := template.Validate(); err != nil {
		return nil, err
	}

	ri := &RecurringInvoice{
		OrgAggregateRoot:   shared.NewOrgAggregateRoot(orgID),
		Template:           template,
		Frequency:          frequency,
		StartDate:          startDate,
		EndDate:            endDate,
		NextGenerationDate: startDate,
		Status:             RecurringStatusActive,
	}

	ri.AddDomainEvent(NewRecurringInvoiceCreatedEvent(ri))

	return ri, nil
}

// IsDue reports whether a generation is due on or before the given day
func (r *RecurringInvoice) IsDue(today time.Time) bool {
	return r.Status == RecurringStatusActive && !r.NextGenerationDate.After(today)
}

// Advance moves the schedule one period forward and finishes the recurring
// invoice when the advanced date passes the end date.
func (r *RecurringInvoice) Advance() {
	r.NextGenerationDate = r.Frequency.NextDate(r.NextGenerationDate)
	if r.EndDate != nil && r.NextGenerationDate.After(*r.EndDate) {
		r.finish()
	}
	r.UpdatedAt = time.Now()
}

// Pause suspends generation. A no-op unless the recurring invoice is active.
func (r *RecurringInvoice) Pause() {
	if r.Status != RecurringStatusActive {
		return
	}
	now := time.Now()
	r.Status = RecurringStatusPaused
	r.PausedAt = &now
	r.UpdatedAt = now

	r.AddDomainEvent(NewRecurringInvoicePausedEvent(r))
}

// Resume reactivates a paused recurring invoice. A no-op otherwise.
func (r *RecurringInvoice) Resume() {
	if r.Status != RecurringStatusPaused {
		return
	}
	now := time.Now()
	r.Status = RecurringStatusActive
	r.PausedAt = nil
	r.UpdatedAt = now

	r.AddDomainEvent(NewRecurringInvoiceResumedEvent(r))
}

// Cancel finishes the recurring invoice from any non-finished state.
// Finished is terminal.
func (r *RecurringInvoice) Cancel() {
	if r.Status == RecurringStatusFinished {
		return
	}
	r.finish()
	r.UpdatedAt = time.Now()

	r.AddDomainEvent(NewRecurringInvoiceCancelledEvent(r))
}

func (r *RecurringInvoice) finish() {
	now := time.Now()
	r.Status = RecurringStatusFinished
	r.FinishedAt = &now
}
