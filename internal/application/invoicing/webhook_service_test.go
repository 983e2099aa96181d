package invoicing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
)

const testWebhookSecret = "whsec_test_secret"

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedEvent(orderID, paymentID string, amount int64) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"order_id":%q,"id":%q,"amount":%d}}}}`,
		orderID, paymentID, amount))
}

func newWebhookFixture(t *testing.T) (*WebhookService, *InvoiceService, *fakeUnitOfWork, *fakeIdempotencyStore) {
	t.Helper()
	uow := newFakeUnitOfWork()
	store := newFakeIdempotencyStore()
	webhookSvc := NewWebhookService(WebhookServiceConfig{
		Secret:           testWebhookSecret,
		UnitOfWork:       uow,
		IdempotencyStore: store,
	})
	invoiceSvc := NewInvoiceService(InvoiceServiceConfig{UnitOfWork: uow})
	return webhookSvc, invoiceSvc, uow, store
}

// sentInvoiceWithOrder creates and sends an invoice carrying a gateway order id
func sentInvoiceWithOrder(t *testing.T, svc *InvoiceService, orderID string) (*invoicing.Invoice, uuid.UUID) {
	t.Helper()
	orgID := uuid.New()
	input := testCreateInput(orgID)
	input.GatewayOrderID = orderID
	inv, err := svc.Create(context.Background(), uuid.New(), input)
	require.NoError(t, err)
	sent, err := svc.Send(context.Background(), orgID, inv.ID, uuid.New())
	require.NoError(t, err)
	return sent, orgID
}

func TestWebhookService_VerifySignature(t *testing.T) {
	svc, _, _, _ := newWebhookFixture(t)
	body := capturedEvent("order_1", "pay_1", 22000)

	assert.NoError(t, svc.VerifySignature(body, signBody(body)))
	assert.ErrorIs(t, svc.VerifySignature(body, signBody([]byte("other"))), ErrWebhookSignature)
	assert.ErrorIs(t, svc.VerifySignature(body, "not-hex"), ErrWebhookSignature)
	assert.ErrorIs(t, svc.VerifySignature(body, ""), ErrWebhookSignature)
}

func TestWebhookService_Process_BadSignature(t *testing.T) {
	svc, invoiceSvc, uow, _ := newWebhookFixture(t)
	sentInvoiceWithOrder(t, invoiceSvc, "order_1")
	body := capturedEvent("order_1", "pay_1", 22000)

	_, err := svc.Process(context.Background(), body, "deadbeef")
	assert.ErrorIs(t, err, ErrWebhookSignature)

	// No state change on rejected payloads.
	assert.Empty(t, uow.state.payments)
	for _, inv := range uow.state.invoices {
		assert.Equal(t, invoicing.InvoiceStatusSent, inv.Status)
	}
}

func TestWebhookService_Process_IgnoredEvent(t *testing.T) {
	svc, _, uow, _ := newWebhookFixture(t)
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"order_id":"order_1","id":"pay_1","amount":100}}}}`)

	result, err := svc.Process(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeIgnored, result.Outcome)
	assert.Equal(t, "payment.failed", result.Event)
	assert.Empty(t, uow.state.audits)
}

func TestWebhookService_Process_Applied(t *testing.T) {
	svc, invoiceSvc, uow, _ := newWebhookFixture(t)
	inv, orgID := sentInvoiceWithOrder(t, invoiceSvc, "order_1")
	body := capturedEvent("order_1", "pay_1", 22000)

	result, err := svc.Process(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeApplied, result.Outcome)

	stored := uow.state.invoices[inv.ID]
	assert.Equal(t, invoicing.InvoiceStatusPaid, stored.Status)
	assert.Equal(t, "pay_1", stored.GatewayPaymentID)

	require.Len(t, uow.state.payments, 1)
	payment := uow.state.payments[0]
	assert.Equal(t, orgID, payment.OrgID)
	assert.Equal(t, invoicing.PaymentMethodGateway, payment.Method)
	// Gateway amounts arrive in minor units.
	assert.Equal(t, "220.00", payment.Amount.StringFixed(2))

	last := uow.state.audits[len(uow.state.audits)-1]
	assert.Equal(t, invoicing.ActivityInvoicePaid, last.Activity)
	assert.Equal(t, invoicing.SystemActor, last.ActorID)
	require.NotNil(t, last.PaymentID)
}

func TestWebhookService_Process_DuplicateDelivery(t *testing.T) {
	svc, invoiceSvc, uow, store := newWebhookFixture(t)
	sentInvoiceWithOrder(t, invoiceSvc, "order_1")
	body := capturedEvent("order_1", "pay_1", 22000)

	first, err := svc.Process(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeApplied, first.Outcome)

	second, err := svc.Process(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeDuplicate, second.Outcome)

	// Applied exactly once.
	assert.Len(t, uow.state.payments, 1)

	// Even without the fast path the structural check holds.
	store.keys = map[string]bool{}
	third, err := svc.Process(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeDuplicate, third.Outcome)
	assert.Len(t, uow.state.payments, 1)
}

func TestWebhookService_Process_Orphan(t *testing.T) {
	svc, _, uow, _ := newWebhookFixture(t)
	body := capturedEvent("order_unknown", "pay_9", 5000)

	result, err := svc.Process(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeOrphan, result.Outcome)

	require.Len(t, uow.state.audits, 1)
	entry := uow.state.audits[0]
	assert.Equal(t, invoicing.ActivityReconciliationOrphan, entry.Activity)
	assert.Equal(t, invoicing.SystemActor, entry.ActorID)
	assert.Nil(t, entry.InvoiceID)
	assert.Contains(t, entry.Comment, "order_unknown")
	assert.Contains(t, entry.Comment, "pay_9")
}

func TestWebhookService_Process_InvalidPayload(t *testing.T) {
	svc, _, _, _ := newWebhookFixture(t)

	body := []byte(`{"event":"payment.captured","payload":{}}`)
	_, err := svc.Process(context.Background(), body, signBody(body))
	assert.ErrorIs(t, err, ErrWebhookPayload)

	body = []byte(`not json`)
	_, err = svc.Process(context.Background(), body, signBody(body))
	assert.ErrorIs(t, err, ErrWebhookPayload)
}

func TestWebhookService_Process_DraftInvoiceFails(t *testing.T) {
	svc, invoiceSvc, uow, store := newWebhookFixture(t)
	input := testCreateInput(uuid.New())
	input.GatewayOrderID = "order_1"
	_, err := invoiceSvc.Create(context.Background(), uuid.New(), input)
	require.NoError(t, err)

	body := capturedEvent("order_1", "pay_1", 22000)
	_, err = svc.Process(context.Background(), body, signBody(body))

	// Paying a draft is an internal failure: surfaced so the gateway
	// redelivers, and the idempotency mark is rolled back for the retry.
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_TRANSITION", domainErr.Code)
	assert.Empty(t, uow.state.payments)
	assert.False(t, store.keys["payment:pay_1"])
}

func TestWebhookService_Process_ConflictRetriesAsDuplicate(t *testing.T) {
	svc, invoiceSvc, uow, _ := newWebhookFixture(t)
	sentInvoiceWithOrder(t, invoiceSvc, "order_1")
	body := capturedEvent("order_1", "pay_1", 22000)

	// A racing manual MarkPaid bumps the version under us.
	uow.hooks.failNextSaveWithLock = shared.ErrConcurrencyConflict
	_, err := svc.Process(context.Background(), body, signBody(body))
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Empty(t, uow.state.payments)

	// The redelivery applies cleanly.
	result, err := svc.Process(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeApplied, result.Outcome)
	assert.Len(t, uow.state.payments, 1)
}

func TestWebhookService_Process_IdempotencyFastPath(t *testing.T) {
	svc, invoiceSvc, uow, store := newWebhookFixture(t)
	sentInvoiceWithOrder(t, invoiceSvc, "order_1")
	body := capturedEvent("order_1", "pay_1", 22000)

	// Pre-marked key short-circuits before any lookup.
	_, err := store.MarkProcessed(context.Background(), "payment:pay_1", time.Hour)
	require.NoError(t, err)

	result, err := svc.Process(context.Background(), body, signBody(body))
	require.NoError(t, err)
	assert.Equal(t, WebhookOutcomeDuplicate, result.Outcome)
	assert.Empty(t, uow.state.payments)
}
