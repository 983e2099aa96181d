package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicehub/backend/internal/interfaces/http/dto"
)

// newInvoiceRouter wires an InvoiceHandler behind a stub auth middleware
// that injects the given org and user into every request.
func newInvoiceRouter(store *mockStore, orgID, userID uuid.UUID) *gin.Engine {
	h := NewInvoiceHandler(newTestInvoiceService(store))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		setJWTContext(c, orgID, userID)
		c.Next()
	})
	router.POST("/invoices", h.Create)
	router.GET("/invoices", h.List)
	router.GET("/invoices/:id", h.GetByID)
	router.PATCH("/invoices/:id", h.Patch)
	router.DELETE("/invoices/:id", h.Delete)
	router.GET("/invoices/:id/audit", h.ListAudit)
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeInvoice(t *testing.T, w *httptest.ResponseRecorder) InvoiceResponse {
	t.Helper()
	resp := decodeResponse(t, w)
	require.True(t, resp.Success)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var inv InvoiceResponse
	require.NoError(t, json.Unmarshal(data, &inv))
	return inv
}

// testIssueDate keeps seeded invoices inside their payment terms so the
// derived status stays sent rather than flipping to overdue as the wall
// clock advances.
func testIssueDate() string {
	return time.Now().Format("2006-01-02")
}

func validCreateRequest() CreateInvoiceRequest {
	return CreateInvoiceRequest{
		CustomerID:   uuid.New().String(),
		CustomerName: "Acme Corp",
		IssueDate:    testIssueDate(),
		Items: []LineItemRequest{
			{Description: "Consulting", Quantity: 2, UnitPrice: 100, TaxRate: 10},
		},
	}
}

func TestInvoiceHandlerCreate(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	req := validCreateRequest()
	w := performJSON(t, router, "POST", "/invoices", req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	inv := decodeInvoice(t, w)
	assert.Equal(t, "draft", inv.Status)
	assert.NotEmpty(t, inv.Number)
	assert.Equal(t, "220.00", inv.Total)
	assert.Len(t, inv.Items, 1)
	assert.Equal(t, req.IssueDate, inv.IssueDate)
}

func TestInvoiceHandlerCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateInvoiceRequest)
	}{
		{
			name:   "missing customer name",
			mutate: func(r *CreateInvoiceRequest) { r.CustomerName = "" },
		},
		{
			name:   "malformed customer id",
			mutate: func(r *CreateInvoiceRequest) { r.CustomerID = "not-a-uuid" },
		},
		{
			name:   "malformed issue date",
			mutate: func(r *CreateInvoiceRequest) { r.IssueDate = "06/01/2026" },
		},
		{
			name: "negative quantity",
			mutate: func(r *CreateInvoiceRequest) {
				r.Items[0].Quantity = -1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			router := newInvoiceRouter(store, uuid.New(), uuid.New())

			req := validCreateRequest()
			tt.mutate(&req)
			w := performJSON(t, router, "POST", "/invoices", req)

			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
		})
	}
}

func TestInvoiceHandlerCreateWithoutItems(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	req := validCreateRequest()
	req.Items = nil
	w := performJSON(t, router, "POST", "/invoices", req)

	// A draft can start empty; items arrive later via PATCH.
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decodeInvoice(t, w)
	assert.Equal(t, "0.00", inv.Total)
}

func TestInvoiceHandlerGetByID(t *testing.T) {
	orgID := uuid.New()
	store := newMockStore()
	router := newInvoiceRouter(store, orgID, uuid.New())

	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", validCreateRequest()))

	w := performJSON(t, router, "GET", "/invoices/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	inv := decodeInvoice(t, w)
	assert.Equal(t, created.ID, inv.ID)
	assert.Equal(t, orgID.String(), inv.OrgID)
}

func TestInvoiceHandlerGetByIDNotFound(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	w := performJSON(t, router, "GET", "/invoices/"+uuid.New().String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestInvoiceHandlerGetByIDWrongOrg(t *testing.T) {
	store := newMockStore()
	ownerRouter := newInvoiceRouter(store, uuid.New(), uuid.New())
	otherRouter := newInvoiceRouter(store, uuid.New(), uuid.New())

	created := decodeInvoice(t, performJSON(t, ownerRouter, "POST", "/invoices", validCreateRequest()))

	w := performJSON(t, otherRouter, "GET", "/invoices/"+created.ID, nil)

	// Cross-org reads look like missing resources, never like forbidden ones.
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceHandlerList(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	for i := 0; i < 3; i++ {
		w := performJSON(t, router, "POST", "/invoices", validCreateRequest())
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := performJSON(t, router, "GET", "/invoices?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(3), resp.Meta.Total)
}

func TestInvoiceHandlerListRejectsBadStatus(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	w := performJSON(t, router, "GET", "/invoices?status=bogus", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandlerPatchSend(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", validCreateRequest()))

	status := "sent"
	w := performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{Status: &status})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	inv := decodeInvoice(t, w)
	assert.Equal(t, "sent", inv.Status)
	assert.NotEmpty(t, inv.DueDate)
	assert.NotNil(t, inv.SentAt)
}

func TestInvoiceHandlerPatchSendEmptyDraft(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	req := validCreateRequest()
	req.Items = nil
	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", req))

	status := "sent"
	w := performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{Status: &status})

	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
}

func TestInvoiceHandlerPatchItemsThenSend(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	req := validCreateRequest()
	req.Items = nil
	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", req))

	status := "sent"
	items := []LineItemRequest{
		{Description: "Setup fee", Quantity: 1, UnitPrice: 500, TaxRate: 0},
	}
	w := performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{
		Status: &status,
		Items:  &items,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	inv := decodeInvoice(t, w)
	assert.Equal(t, "sent", inv.Status)
	assert.Equal(t, "500.00", inv.Total)
}

func TestInvoiceHandlerPatchMarkPaid(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", validCreateRequest()))

	status := "sent"
	w := performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{Status: &status})
	require.Equal(t, http.StatusOK, w.Code)

	status = "paid"
	w = performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{
		Status: &status,
		Payment: &PaymentRequest{
			Amount: 220,
			Method: "bank_transfer",
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	inv := decodeInvoice(t, w)
	assert.Equal(t, "paid", inv.Status)
	assert.NotNil(t, inv.PaidAt)
	assert.Len(t, store.payments, 1)
}

func TestInvoiceHandlerPatchMarkPaidWithoutPayment(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", validCreateRequest()))

	status := "paid"
	w := performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{Status: &status})

	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestInvoiceHandlerPatchInvalidTransition(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", validCreateRequest()))

	status := "cancelled"
	w := performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{Status: &status})
	require.Equal(t, http.StatusOK, w.Code)

	status = "sent"
	w = performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{Status: &status})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeInvalidTransition, resp.Error.Code)
}

func TestInvoiceHandlerPatchItemsAfterSend(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", validCreateRequest()))

	status := "sent"
	w := performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{Status: &status})
	require.Equal(t, http.StatusOK, w.Code)

	items := []LineItemRequest{
		{Description: "Late addition", Quantity: 1, UnitPrice: 50, TaxRate: 0},
	}
	w = performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{Items: &items})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeImmutableInvoice, resp.Error.Code)
}

func TestInvoiceHandlerPatchEmptyBody(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", validCreateRequest()))

	w := performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandlerDelete(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", validCreateRequest()))

	w := performJSON(t, router, "DELETE", "/invoices/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = performJSON(t, router, "GET", "/invoices/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceHandlerListAudit(t *testing.T) {
	store := newMockStore()
	router := newInvoiceRouter(store, uuid.New(), uuid.New())

	created := decodeInvoice(t, performJSON(t, router, "POST", "/invoices", validCreateRequest()))

	status := "sent"
	w := performJSON(t, router, "PATCH", "/invoices/"+created.ID, PatchInvoiceRequest{Status: &status})
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, router, "GET", "/invoices/"+created.ID+"/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var entries []AuditEntryResponse
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "invoice_created", entries[0].Activity)
	assert.Equal(t, "invoice_sent", entries[1].Activity)
}

func TestInvoiceHandlerRequiresOrg(t *testing.T) {
	store := newMockStore()
	h := NewInvoiceHandler(newTestInvoiceService(store))

	router := gin.New()
	router.GET("/invoices", h.List)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/invoices", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
