package handler

import (
	"time"

	"github.com/invoicehub/backend/internal/domain/invoicing"
)

// TemplateItemResponse represents one template line item in API responses
type TemplateItemResponse struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TaxRate     string `json:"tax_rate"`
}

// TemplateResponse represents the invoice template in API responses
type TemplateResponse struct {
	CustomerID   string                 `json:"customer_id"`
	CustomerName string                 `json:"customer_name"`
	Currency     string                 `json:"currency"`
	Notes        string                 `json:"notes,omitempty"`
	Items        []TemplateItemResponse `json:"items"`
}

// RecurringInvoiceResponse represents a recurring invoice in API responses
type RecurringInvoiceResponse struct {
	ID                 string           `json:"id"`
	OrgID              string           `json:"org_id"`
	Template           TemplateResponse `json:"template"`
	Frequency          string           `json:"frequency"`
	StartDate          string           `json:"start_date"`
	EndDate            *string          `json:"end_date,omitempty"`
	NextGenerationDate string           `json:"next_generation_date"`
	Status             string           `json:"status"`
	PausedAt           *time.Time       `json:"paused_at,omitempty"`
	FinishedAt         *time.Time       `json:"finished_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Version            int              `json:"version"`
}

// toTemplateResponse converts a domain template to a response DTO
func toTemplateResponse(t invoicing.InvoiceTemplate) TemplateResponse {
	items := make([]TemplateItemResponse, 0, len(t.Items))
	for _, item := range t.Items {
		items = append(items, TemplateItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.StringFixed(2),
			TaxRate:     item.TaxRate.String(),
		})
	}
	return TemplateResponse{
		CustomerID:   t.CustomerID.String(),
		CustomerName: t.CustomerName,
		Currency:     string(t.Currency),
		Notes:        t.Notes,
		Items:        items,
	}
}

// toRecurringInvoiceResponse converts a domain recurring invoice to a response DTO
func toRecurringInvoiceResponse(ri *invoicing.RecurringInvoice) RecurringInvoiceResponse {
	resp := RecurringInvoiceResponse{
		ID:                 ri.ID.String(),
		OrgID:              ri.OrgID.String(),
		Template:           toTemplateResponse(ri.Template),
		Frequency:          ri.Frequency.String(),
		StartDate:          ri.StartDate.Format(dateLayout),
		NextGenerationDate: ri.NextGenerationDate.Format(dateLayout),
		Status:             string(ri.Status),
		PausedAt:           ri.PausedAt,
		FinishedAt:         ri.FinishedAt,
		CreatedAt:          ri.CreatedAt,
		UpdatedAt:          ri.UpdatedAt,
		Version:            ri.Version,
	}
	if ri.EndDate != nil {
		endDate := ri.EndDate.Format(dateLayout)
		resp.EndDate = &endDate
	}
	return resp
}

// toRecurringInvoiceResponses converts a slice of domain recurring invoices
func toRecurringInvoiceResponses(items []invoicing.RecurringInvoice) []RecurringInvoiceResponse {
	out := make([]RecurringInvoiceResponse, 0, len(items))
	for i := range items {
		out = append(out, toRecurringInvoiceResponse(&items[i]))
	}
	return out
}
