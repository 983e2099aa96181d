package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinvoicing "github.com/invoicehub/backend/internal/application/invoicing"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/invoicehub/backend/internal/interfaces/http/dto"
)

// InvoiceHandler handles invoice lifecycle API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appinvoicing.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *appinvoicing.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// LineItemRequest represents one line item in a create or patch request
// @Description Line item input; the line total is always derived server-side
type LineItemRequest struct {
	Description string  `json:"description" binding:"required,min=1,max=500" example:"Consulting hours"`
	Quantity    float64 `json:"quantity" binding:"gte=0" example:"2"`
	UnitPrice   float64 `json:"unit_price" binding:"gte=0" example:"100.00"`
	TaxRate     float64 `json:"tax_rate" binding:"gte=0,lte=100" example:"10"`
}

// CreateInvoiceRequest represents a request to create a draft invoice
// @Description Request body for creating a new draft invoice
type CreateInvoiceRequest struct {
	CustomerID     string            `json:"customer_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440002"`
	CustomerName   string            `json:"customer_name" binding:"required,min=1,max=200" example:"Acme Corp"`
	IssueDate      string            `json:"issue_date" binding:"required,datetime=2006-01-02" example:"2026-06-01"`
	Notes          string            `json:"notes" binding:"max=2000"`
	GatewayOrderID string            `json:"gateway_order_id" binding:"max=100"`
	Items          []LineItemRequest `json:"items" binding:"omitempty,dive"`
}

// PaymentRequest represents manual payment details for a paid transition
// @Description Payment details recorded when an invoice is marked paid
type PaymentRequest struct {
	Amount           float64 `json:"amount" binding:"required,gt=0" example:"220.00"`
	PaymentDate      string  `json:"payment_date" binding:"omitempty,datetime=2006-01-02" example:"2026-06-15"`
	Method           string  `json:"method" binding:"omitempty,oneof=bank_transfer card cash gateway other" example:"bank_transfer"`
	Notes            string  `json:"notes" binding:"max=2000"`
	GatewayPaymentID string  `json:"gateway_payment_id" binding:"max=100"`
}

// PatchInvoiceRequest represents a status transition and/or item replacement
// @Description Request body for PATCH /invoices/:id
type PatchInvoiceRequest struct {
	Status  *string            `json:"status" binding:"omitempty,oneof=sent paid cancelled" example:"sent"`
	Items   *[]LineItemRequest `json:"items" binding:"omitempty,dive"`
	Payment *PaymentRequest    `json:"payment"`
}

// InvoiceListRequest represents invoice list query parameters
type InvoiceListRequest struct {
	dto.ListRequest
	Status       string `form:"status" binding:"omitempty,oneof=draft sent paid cancelled overdue"`
	CustomerID   string `form:"customer_id" binding:"omitempty,uuid"`
	IssuedAfter  string `form:"issued_after" binding:"omitempty,datetime=2006-01-02"`
	IssuedBefore string `form:"issued_before" binding:"omitempty,datetime=2006-01-02"`
}

// Create godoc
// @ID           createInvoice
// @Summary      Create a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body CreateInvoiceRequest true "Invoice creation request"
// @Success      201 {object} dto.Response{data=InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}
	actorID, _ := getUserID(c)

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}
	issueDate, err := time.Parse(dateLayout, req.IssueDate)
	if err != nil {
		h.BadRequest(c, "Invalid issue date format")
		return
	}

	input := appinvoicing.CreateInvoiceInput{
		OrgID:          orgID,
		CustomerID:     customerID,
		CustomerName:   req.CustomerName,
		IssueDate:      issueDate,
		Notes:          req.Notes,
		GatewayOrderID: req.GatewayOrderID,
		Items:          toLineItemInputs(req.Items),
	}

	inv, err := h.invoiceService.Create(c.Request.Context(), actorID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(inv, time.Now()))
}

// List godoc
// @ID           listInvoices
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        status query string false "Filter by status (overdue is derived)"
// @Param        customer_id query string false "Filter by customer" format(uuid)
// @Success      200 {object} dto.Response{data=[]InvoiceResponse}
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}

	req := InvoiceListRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
		Filters:  make(map[string]interface{}),
	}
	if req.Status != "" {
		filter.Filters["status"] = req.Status
	}
	if req.CustomerID != "" {
		filter.Filters["customer_id"] = req.CustomerID
	}
	if req.IssuedAfter != "" {
		filter.Filters["issued_after"] = req.IssuedAfter
	}
	if req.IssuedBefore != "" {
		filter.Filters["issued_before"] = req.IssuedBefore
	}

	page, err := h.invoiceService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toInvoiceResponses(page.Items, time.Now()), page.Total, filter.Page, filter.PageSize)
}

// GetByID godoc
// @ID           getInvoiceById
// @Summary      Get invoice by ID
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=InvoiceResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.invoiceService.Get(c.Request.Context(), orgID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(inv, time.Now()))
}

// Patch godoc
// @ID           patchInvoice
// @Summary      Transition invoice status and/or replace items
// @Description  Items can only be replaced while the invoice is a draft.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body PatchInvoiceRequest true "Patch request"
// @Success      200 {object} dto.Response{data=InvoiceResponse}
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /invoices/{id} [patch]
func (h *InvoiceHandler) Patch(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}
	actorID, _ := getUserID(c)

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req PatchInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Status == nil && req.Items == nil {
		h.BadRequest(c, "Nothing to patch: provide status and/or items")
		return
	}

	ctx := c.Request.Context()
	var inv *invoicing.Invoice

	// Item replacement happens before any transition so a draft can be
	// finalized and sent in one request.
	if req.Items != nil {
		inv, err = h.invoiceService.ReplaceItems(ctx, orgID, invoiceID, actorID, toLineItemInputs(*req.Items))
		if err != nil {
			h.HandleError(c, err)
			return
		}
	}

	if req.Status != nil {
		switch invoicing.InvoiceStatus(*req.Status) {
		case invoicing.InvoiceStatusSent:
			inv, err = h.invoiceService.Send(ctx, orgID, invoiceID, actorID)
		case invoicing.InvoiceStatusPaid:
			if req.Payment == nil {
				h.BadRequest(c, "Payment details are required to mark an invoice paid")
				return
			}
			input, perr := toPaymentInput(req.Payment)
			if perr != nil {
				h.BadRequest(c, perr.Error())
				return
			}
			inv, err = h.invoiceService.MarkPaid(ctx, orgID, invoiceID, actorID, input)
		case invoicing.InvoiceStatusCancelled:
			inv, err = h.invoiceService.Cancel(ctx, orgID, invoiceID, actorID)
		}
		if err != nil {
			h.HandleError(c, err)
			return
		}
	}

	h.Success(c, toInvoiceResponse(inv, time.Now()))
}

// Delete godoc
// @ID           deleteInvoice
// @Summary      Delete an invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), orgID, invoiceID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ListAudit godoc
// @ID           listInvoiceAudit
// @Summary      List the audit trail of an invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]AuditEntryResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /invoices/{id}/audit [get]
func (h *InvoiceHandler) ListAudit(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	entries, err := h.invoiceService.ListAudit(c.Request.Context(), orgID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAuditEntryResponses(entries))
}

// toLineItemInputs converts request items to application inputs
func toLineItemInputs(items []LineItemRequest) []appinvoicing.LineItemInput {
	inputs := make([]appinvoicing.LineItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, appinvoicing.LineItemInput{
			Description: item.Description,
			Quantity:    decimal.NewFromFloat(item.Quantity),
			UnitPrice:   decimal.NewFromFloat(item.UnitPrice),
			TaxRate:     decimal.NewFromFloat(item.TaxRate),
		})
	}
	return inputs
}

// toPaymentInput converts a payment request to an application input
func toPaymentInput(req *PaymentRequest) (appinvoicing.PaymentInput, error) {
	input := appinvoicing.PaymentInput{
		Amount:           decimal.NewFromFloat(req.Amount),
		Method:           invoicing.PaymentMethod(req.Method),
		Notes:            req.Notes,
		GatewayPaymentID: req.GatewayPaymentID,
	}
	if input.Method == "" {
		input.Method = invoicing.PaymentMethodOther
	}
	if req.PaymentDate != "" {
		date, err := time.Parse(dateLayout, req.PaymentDate)
		if err != nil {
			return appinvoicing.PaymentInput{}, err
		}
		input.PaymentDate = date
	}
	return input, nil
}
