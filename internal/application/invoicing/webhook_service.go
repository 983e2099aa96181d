package invoicing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/invoicehub/backend/internal/domain/invoicing"
	"github.com/invoicehub/backend/internal/domain/shared"
)

var (
	// ErrWebhookSignature is returned when the signature does not match
	ErrWebhookSignature = errors.New("payment webhook: signature verification failed")
	// ErrWebhookPayload is returned when the event envelope cannot be parsed
	ErrWebhookPayload = errors.New("payment webhook: invalid payload")
)

// EventPaymentCaptured is the only gateway event type that reconciles
const EventPaymentCaptured = "payment.captured"

const idempotencyTTL = 24 * time.Hour

// WebhookOutcome classifies how an event was handled. Every outcome except
// a processing error is acknowledged with success so the gateway stops
// redelivering.
type WebhookOutcome string

const (
	WebhookOutcomeApplied   WebhookOutcome = "applied"
	WebhookOutcomeIgnored   WebhookOutcome = "ignored"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeOrphan    WebhookOutcome = "orphan"
)

// WebhookResult represents the result of processing one gateway event
type WebhookResult struct {
	Outcome WebhookOutcome `json:"outcome"`
	Event   string         `json:"event"`
}

// paymentEvent is the gateway's event envelope
type paymentEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				OrderID string `json:"order_id"`
				ID      string `json:"id"`
				Amount  int64  `json:"amount"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	Secret           string
	UnitOfWork       invoicing.UnitOfWork
	IdempotencyStore shared.IdempotencyStore
	EventPublisher   shared.EventPublisher
	Logger           *zap.Logger
}

// WebhookService reconciles gateway payment notifications with invoices.
// Verification happens over the raw body before any parsing; application is
// idempotent, with the gateway payment id recorded on the invoice as the
// structural guard and the idempotency store as a fast path in front of it.
type WebhookService struct {
	secret      []byte
	uow         invoicing.UnitOfWork
	idempotency shared.IdempotencyStore
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookService{
		secret:      []byte(cfg.Secret),
		uow:         cfg.UnitOfWork,
		idempotency: cfg.IdempotencyStore,
		publisher:   cfg.EventPublisher,
		logger:      logger,
	}
}

// VerifySignature checks the hex HMAC-SHA256 signature over the raw body
func (s *WebhookService) VerifySignature(body []byte, signature string) error {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return ErrWebhookSignature
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrWebhookSignature
	}
	return nil
}

// Process verifies, parses and applies one gateway event. The raw body is
// signed, so verification must run before parsing touches it.
func (s *WebhookService) Process(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if err := s.VerifySignature(body, signature); err != nil {
		s.logger.Warn("Webhook signature verification failed")
		return nil, err
	}

	var event paymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookPayload, err)
	}

	if event.Event != EventPaymentCaptured {
		s.logger.Info("Ignoring gateway event",
			zap.String("event", event.Event))
		return &WebhookResult{Outcome: WebhookOutcomeIgnored, Event: event.Event}, nil
	}

	entity := event.Payload.Payment.Entity
	if entity.OrderID == "" || entity.ID == "" {
		return nil, fmt.Errorf("%w: missing order or payment id", ErrWebhookPayload)
	}

	s.logger.Info("Payment captured event received",
		zap.String("gateway_order_id", entity.OrderID),
		zap.String("gateway_payment_id", entity.ID),
		zap.Int64("amount", entity.Amount))

	// Fast-path duplicate check. Store failures fall through to the
	// structural check rather than blocking reconciliation.
	idempotencyKey := fmt.Sprintf("payment:%s", entity.ID)
	marked := false
	if s.idempotency != nil {
		fresh, err := s.idempotency.MarkProcessed(ctx, idempotencyKey, idempotencyTTL)
		if err != nil {
			s.logger.Warn("Idempotency store unavailable",
				zap.String("idempotency_key", idempotencyKey),
				zap.Error(err))
		} else if !fresh {
			s.logger.Info("Event already processed",
				zap.String("idempotency_key", idempotencyKey))
			return &WebhookResult{Outcome: WebhookOutcomeDuplicate, Event: event.Event}, nil
		} else {
			marked = true
		}
	}

	result, err := s.apply(ctx, entity.OrderID, entity.ID, entity.Amount)
	if err != nil {
		if marked {
			if unmarkErr := s.idempotency.Unmark(ctx, idempotencyKey); unmarkErr != nil {
				s.logger.Warn("Failed to unmark idempotency key",
					zap.String("idempotency_key", idempotencyKey),
					zap.Error(unmarkErr))
			}
		}
		s.logger.Error("Failed to apply payment event",
			zap.String("gateway_order_id", entity.OrderID),
			zap.String("gateway_payment_id", entity.ID),
			zap.Error(err))
		return nil, err
	}
	result.Event = event.Event
	return result, nil
}

// apply reconciles one captured payment with its invoice in one transaction
func (s *WebhookService) apply(ctx context.Context, gatewayOrderID, gatewayPaymentID string, amount int64) (*WebhookResult, error) {
	var (
		result WebhookResult
		inv    *invoicing.Invoice
	)
	err := s.uow.Do(ctx, func(ctx context.Context, repos invoicing.Repositories) error {
		found, err := repos.Invoices.FindByGatewayOrderID(ctx, gatewayOrderID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				// Nothing to reconcile against; redelivery cannot fix
				// this, so record the trace and acknowledge.
				entry := invoicing.NewOrphanAuditEntry(fmt.Sprintf(
					"No invoice for gateway order %s (payment %s, amount %d)",
					gatewayOrderID, gatewayPaymentID, amount))
				if auditErr := repos.Audit.Append(ctx, entry); auditErr != nil {
					return fmt.Errorf("failed to audit orphan event: %w", auditErr)
				}
				result = WebhookResult{Outcome: WebhookOutcomeOrphan}
				return nil
			}
			return err
		}

		if found.HasGatewayPayment(gatewayPaymentID) {
			result = WebhookResult{Outcome: WebhookOutcomeDuplicate}
			return nil
		}
		exists, err := repos.Payments.ExistsByGatewayPaymentID(ctx, found.ID, gatewayPaymentID)
		if err != nil {
			return err
		}
		if exists {
			result = WebhookResult{Outcome: WebhookOutcomeDuplicate}
			return nil
		}

		now := time.Now()
		payment, err := invoicing.NewPayment(found.OrgID, found.ID,
			decimal.New(amount, -2), now, invoicing.PaymentMethodGateway,
			"Reconciled from gateway webhook", gatewayPaymentID)
		if err != nil {
			return err
		}
		if err := found.MarkPaid(payment, now); err != nil {
			return err
		}
		if err := repos.Payments.Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := repos.Invoices.SaveWithLock(ctx, found); err != nil {
			return err
		}

		entry, err := invoicing.NewAuditEntry(found.OrgID, found.ID, invoicing.SystemActor,
			invoicing.ActivityInvoicePaid,
			fmt.Sprintf("Invoice %s reconciled with gateway payment %s", found.Number, gatewayPaymentID))
		if err != nil {
			return err
		}
		entry.WithPayment(payment.ID)
		if err := repos.Audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append audit entry: %w", err)
		}

		inv = found
		result = WebhookResult{Outcome: WebhookOutcomeApplied}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if inv != nil {
		s.publishInvoiceEvents(ctx, inv)
		s.logger.Info("Invoice reconciled via gateway webhook",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("number", inv.Number),
			zap.String("gateway_payment_id", gatewayPaymentID))
	} else if result.Outcome == WebhookOutcomeOrphan {
		s.logger.Warn("Orphan payment event",
			zap.String("gateway_order_id", gatewayOrderID),
			zap.String("gateway_payment_id", gatewayPaymentID))
	}

	return &result, nil
}

func (s *WebhookService) publishInvoiceEvents(ctx context.Context, inv *invoicing.Invoice) {
	if s.publisher == nil {
		return
	}
	for _, event := range inv.GetDomainEvents() {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	inv.ClearDomainEvents()
}
