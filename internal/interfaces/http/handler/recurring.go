package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appinvoicing "github.com/invoicehub/backend/internal/application/invoicing"
	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/invoicehub/backend/internal/interfaces/http/dto"
)

// RecurringHandler handles recurring invoice API endpoints
type RecurringHandler struct {
	BaseHandler
	recurringService *appinvoicing.RecurringService
}

// NewRecurringHandler creates a new RecurringHandler
func NewRecurringHandler(recurringService *appinvoicing.RecurringService) *RecurringHandler {
	return &RecurringHandler{
		recurringService: recurringService,
	}
}

// CreateRecurringRequest represents a request to create a recurring invoice
// @Description Request body for creating a new recurring invoice
type CreateRecurringRequest struct {
	CustomerID   string            `json:"customer_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440002"`
	CustomerName string            `json:"customer_name" binding:"required,min=1,max=200" example:"Acme Corp"`
	Notes        string            `json:"notes" binding:"max=2000"`
	Items        []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	Frequency    string            `json:"frequency" binding:"required,frequency" example:"monthly"`
	StartDate    string            `json:"start_date" binding:"required,datetime=2006-01-02" example:"2026-07-01"`
	EndDate      string            `json:"end_date" binding:"omitempty,datetime=2006-01-02" example:"2027-07-01"`
}

// RecurringListRequest represents recurring invoice list query parameters
type RecurringListRequest struct {
	dto.ListRequest
	Status    string `form:"status" binding:"omitempty,oneof=active paused finished"`
	Frequency string `form:"frequency" binding:"omitempty,frequency"`
}

// Create godoc
// @ID           createRecurringInvoice
// @Summary      Create a recurring invoice
// @Tags         recurring-invoices
// @Accept       json
// @Produce      json
// @Param        request body CreateRecurringRequest true "Recurring invoice creation request"
// @Success      201 {object} dto.Response{data=RecurringInvoiceResponse}
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /recurring-invoices [post]
func (h *RecurringHandler) Create(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}
	actorID, _ := getUserID(c)

	var req CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		h.BadRequest(c, "Invalid start date format")
		return
	}
	var endDate *time.Time
	if req.EndDate != "" {
		parsed, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			h.BadRequest(c, "Invalid end date format")
			return
		}
		endDate = &parsed
	}

	input := appinvoicing.CreateRecurringInput{
		OrgID:        orgID,
		CustomerID:   customerID,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Items:        toLineItemInputs(req.Items),
		Frequency:    invoicing.Frequency(req.Frequency),
		StartDate:    startDate,
		EndDate:      endDate,
	}

	ri, err := h.recurringService.Create(c.Request.Context(), actorID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toRecurringInvoiceResponse(ri))
}

// List godoc
// @ID           listRecurringInvoices
// @Summary      List recurring invoices
// @Tags         recurring-invoices
// @Produce      json
// @Param        status query string false "Filter by status"
// @Param        frequency query string false "Filter by frequency"
// @Success      200 {object} dto.Response{data=[]RecurringInvoiceResponse}
// @Security     BearerAuth
// @Router       /recurring-invoices [get]
func (h *RecurringHandler) List(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}

	req := RecurringListRequest{ListRequest: dto.DefaultListRequest()}
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
	if req.Frequency != "" {
		filter.Filters["frequency"] = req.Frequency
	}

	page, err := h.recurringService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, toRecurringInvoiceResponses(page.Items), page.Total, filter.Page, filter.PageSize)
}

// GetByID godoc
// @ID           getRecurringInvoiceById
// @Summary      Get recurring invoice by ID
// @Tags         recurring-invoices
// @Produce      json
// @Param        id path string true "Recurring invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=RecurringInvoiceResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /recurring-invoices/{id} [get]
func (h *RecurringHandler) GetByID(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}

	recurringID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid recurring invoice ID format")
		return
	}

	ri, err := h.recurringService.Get(c.Request.Context(), orgID, recurringID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRecurringInvoiceResponse(ri))
}

// Generate godoc
// @ID           generateRecurringInvoiceNow
// @Summary      Generate an invoice from the template immediately
// @Description  Generates out of schedule without advancing the next generation date.
// @Tags         recurring-invoices
// @Produce      json
// @Param        id path string true "Recurring invoice ID" format(uuid)
// @Success      201 {object} dto.Response{data=InvoiceResponse}
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /recurring-invoices/{id}/generate [post]
func (h *RecurringHandler) Generate(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}
	actorID, _ := getUserID(c)

	recurringID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid recurring invoice ID format")
		return
	}

	inv, err := h.recurringService.GenerateNow(c.Request.Context(), orgID, recurringID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(inv, time.Now()))
}

// Pause godoc
// @ID           pauseRecurringInvoice
// @Summary      Pause a recurring invoice
// @Tags         recurring-invoices
// @Produce      json
// @Param        id path string true "Recurring invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=RecurringInvoiceResponse}
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /recurring-invoices/{id}/pause [post]
func (h *RecurringHandler) Pause(c *gin.Context) {
	h.action(c, h.recurringService.Pause)
}

// Resume godoc
// @ID           resumeRecurringInvoice
// @Summary      Resume a paused recurring invoice
// @Tags         recurring-invoices
// @Produce      json
// @Param        id path string true "Recurring invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=RecurringInvoiceResponse}
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /recurring-invoices/{id}/resume [post]
func (h *RecurringHandler) Resume(c *gin.Context) {
	h.action(c, h.recurringService.Resume)
}

// Cancel godoc
// @ID           cancelRecurringInvoice
// @Summary      Cancel a recurring invoice
// @Tags         recurring-invoices
// @Produce      json
// @Param        id path string true "Recurring invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=RecurringInvoiceResponse}
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /recurring-invoices/{id}/cancel [post]
func (h *RecurringHandler) Cancel(c *gin.Context) {
	h.action(c, h.recurringService.Cancel)
}

// ListAudit godoc
// @ID           listRecurringInvoiceAudit
// @Summary      List the audit trail of a recurring invoice
// @Tags         recurring-invoices
// @Produce      json
// @Param        id path string true "Recurring invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]AuditEntryResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /recurring-invoices/{id}/audit [get]
func (h *RecurringHandler) ListAudit(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}

	recurringID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid recurring invoice ID format")
		return
	}

	entries, err := h.recurringService.ListAudit(c.Request.Context(), orgID, recurringID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAuditEntryResponses(entries))
}

// action runs one of the status mutation operations, which all share the
// same request and response shape.
func (h *RecurringHandler) action(c *gin.Context, fn func(ctx context.Context, orgID, recurringID, actorID uuid.UUID) (*invoicing.RecurringInvoice, error)) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid org ID")
		return
	}
	actorID, _ := getUserID(c)

	recurringID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid recurring invoice ID format")
		return
	}

	ri, err := fn(c.Request.Context(), orgID, recurringID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toRecurringInvoiceResponse(ri))
}
