package invoicing

import (
	"time"

	"github.com/invoicehub/backend/internal/domain/shared"
	"github.com/invoicehub/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodGateway      PaymentMethod = "gateway"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid checks if the method is a known PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodCash, PaymentMethodGateway, PaymentMethodOther:
		return true
	}
	return false
}

// Payment records money received against exactly one invoice.
// GatewayPaymentID carries the external gateway's payment identifier for
// webhook deduplication; it is empty for manual payments.
type Payment struct {
	shared.BaseEntity
	OrgID            uuid.UUID
	InvoiceID        uuid.UUID
	Amount           decimal.Decimal
	Currency         valueobject.Currency
	PaymentDate      time.Time
	Method           PaymentMethod
	Notes            string
	GatewayPaymentID string
}

// NewPayment creates a validated payment for an invoice
func NewPayment(orgID, invoiceID uuid.UUID, amount decimal.Decimal, paymentDate time.Time, method PaymentMethod, notes, gatewayPaymentID string) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "Invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("VALIDATION", "Payment amount must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "Unknown payment method")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	return &Payment{
		BaseEntity:       shared.NewBaseEntity(),
		OrgID:            orgID,
		InvoiceID:        invoiceID,
		Amount:           amount,
		Currency:         valueobject.DefaultCurrency,
		PaymentDate:      paymentDate,
		Method:           method,
		Notes:            notes,
		GatewayPaymentID: gatewayPaymentID,
	}, nil
}
