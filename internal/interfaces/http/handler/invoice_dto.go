package handler

import (
	"time"

	"github.com/invoicehub/backend/internal/domain/invoicing"
)

// LineItemResponse represents one invoice line item in API responses
// @Description Invoice line item with its derived total
type LineItemResponse struct {
	ID          string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Position    int    `json:"position" example:"0"`
	Description string `json:"description" example:"Consulting hours"`
	Quantity    string `json:"quantity" example:"2"`
	UnitPrice   string `json:"unit_price" example:"100.00"`
	TaxRate     string `json:"tax_rate" example:"10"`
	LineTotal   string `json:"line_total" example:"220.00"`
}

// InvoiceResponse represents an invoice in API responses
// @Description Invoice details including derived totals and status
type InvoiceResponse struct {
	ID               string             `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	OrgID            string             `json:"org_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	Number           string             `json:"number" example:"000042"`
	CustomerID       string             `json:"customer_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	CustomerName     string             `json:"customer_name" example:"Acme Corp"`
	Status           string             `json:"status" example:"sent" enums:"draft,sent,paid,cancelled,overdue"`
	Currency         string             `json:"currency" example:"USD"`
	Subtotal         string             `json:"subtotal" example:"200.00"`
	TaxTotal         string             `json:"tax_total" example:"20.00"`
	Total            string             `json:"total" example:"220.00"`
	IssueDate        string             `json:"issue_date" example:"2026-06-01"`
	DueDate          string             `json:"due_date,omitempty" example:"2026-07-01"`
	Notes            string             `json:"notes,omitempty"`
	GatewayOrderID   string             `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string             `json:"gateway_payment_id,omitempty"`
	Items            []LineItemResponse `json:"items,omitempty"`
	SentAt           *time.Time         `json:"sent_at,omitempty"`
	PaidAt           *time.Time         `json:"paid_at,omitempty"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	Version          int                `json:"version" example:"1"`
}

// AuditEntryResponse represents one audit trail entry
// @Description Immutable audit trail entry
type AuditEntryResponse struct {
	ID                 string    `json:"id"`
	InvoiceID          string    `json:"invoice_id,omitempty"`
	RecurringInvoiceID string    `json:"recurring_invoice_id,omitempty"`
	PaymentID          string    `json:"payment_id,omitempty"`
	ActorID            string    `json:"actor_id"`
	Activity           string    `json:"activity" example:"invoice_sent"`
	Comment            string    `json:"comment,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

const dateLayout = "2006-01-02"

func toLineItemResponses(items []invoicing.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, LineItemResponse{
			ID:          item.ID.String(),
			Position:    item.Position,
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.String(),
			TaxRate:     item.TaxRate.String(),
			LineTotal:   item.LineTotal.String(),
		})
	}
	return out
}

func toInvoiceResponse(inv *invoicing.Invoice, now time.Time) InvoiceResponse {
	resp := InvoiceResponse{
		ID:               inv.ID.String(),
		OrgID:            inv.OrgID.String(),
		Number:           inv.Number,
		CustomerID:       inv.CustomerID.String(),
		CustomerName:     inv.CustomerName,
		Status:           inv.EffectiveStatus(now).String(),
		Currency:         string(inv.Currency),
		Subtotal:         inv.Subtotal.StringFixed(2),
		TaxTotal:         inv.TaxTotal.StringFixed(2),
		Total:            inv.Total.StringFixed(2),
		IssueDate:        inv.IssueDate.Format(dateLayout),
		Notes:            inv.Notes,
		GatewayOrderID:   inv.GatewayOrderID,
		GatewayPaymentID: inv.GatewayPaymentID,
		Items:            toLineItemResponses(inv.Items),
		SentAt:           inv.SentAt,
		PaidAt:           inv.PaidAt,
		CancelledAt:      inv.CancelledAt,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
		Version:          inv.Version,
	}
	if inv.DueDate != nil {
		resp.DueDate = inv.DueDate.Format(dateLayout)
	}
	return resp
}

func toInvoiceResponses(invoices []invoicing.Invoice, now time.Time) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, toInvoiceResponse(&invoices[i], now))
	}
	return out
}

func toAuditEntryResponses(entries []invoicing.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := AuditEntryResponse{
			ID:        e.ID.String(),
			ActorID:   e.ActorID.String(),
			Activity:  string(e.Activity),
			Comment:   e.Comment,
			CreatedAt: e.CreatedAt,
		}
		if e.InvoiceID != nil {
			resp.InvoiceID = e.InvoiceID.String()
		}
		if e.RecurringInvoiceID != nil {
			resp.RecurringInvoiceID = e.RecurringInvoiceID.String()
		}
		if e.PaymentID != nil {
			resp.PaymentID = e.PaymentID.String()
		}
		out = append(out, resp)
	}
	return out
}
