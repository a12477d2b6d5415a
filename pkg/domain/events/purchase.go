package events

import (
	"time"

	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseEvent carries the fields every purchase lifecycle event shares.
type PurchaseEvent struct {
	PurchaseID      uuid.UUID       `json:"purchaseId"`
	InternalOrderID string          `json:"internalOrderId"`
	GatewayOrderID  string          `json:"gatewayOrderId"`
	UserID          string          `json:"userId,omitempty"`
	Email           string          `json:"email"`
	Status          purchase.Status `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	OccurredAt      time.Time       `json:"occurredAt"`
}

func newPurchaseEvent(p *purchase.Purchase, at time.Time) PurchaseEvent {
	return PurchaseEvent{
		PurchaseID:      p.ID,
		InternalOrderID: p.InternalOrderID,
		GatewayOrderID:  p.GatewayOrderID,
		UserID:          p.Actor.UserID,
		Email:           p.Actor.Email,
		Status:          p.Status,
		Amount:          p.Pricing.Amount,
		Currency:        p.Pricing.Currency,
		OccurredAt:      at.UTC(),
	}
}

// PurchaseCreated is emitted when a checkout opens a new ledger entry.
type PurchaseCreated struct {
	PurchaseEvent
	PackageSlug string `json:"packageSlug"`
	Travellers  int    `json:"travellers"`
}

func (PurchaseCreated) Type() string { return EventTypePurchaseCreated.String() }

// PurchasePaid is emitted when a confirm transition is applied.
type PurchasePaid struct {
	PurchaseEvent
	GatewayPaymentID string `json:"gatewayPaymentId"`
	PaymentMethod    string `json:"paymentMethod,omitempty"`
	// Recovered is set when the purchase had previously been marked failed.
	Recovered bool `json:"recovered,omitempty"`
}

func (PurchasePaid) Type() string { return EventTypePurchasePaid.String() }

// PurchaseFailed is emitted when a fail transition is applied.
type PurchaseFailed struct {
	PurchaseEvent
	Reason string `json:"reason,omitempty"`
}

func (PurchaseFailed) Type() string { return EventTypePurchaseFailed.String() }

// PurchaseRefunded is emitted when a refund transition is applied.
type PurchaseRefunded struct {
	PurchaseEvent
	RefundID       string          `json:"refundId,omitempty"`
	RefundedAmount decimal.Decimal `json:"refundedAmount"`
}

func (PurchaseRefunded) Type() string { return EventTypePurchaseRefunded.String() }

// NewPurchaseCreated builds the event for a freshly created purchase.
func NewPurchaseCreated(p *purchase.Purchase, at time.Time) *PurchaseCreated {
	return &PurchaseCreated{
		PurchaseEvent: newPurchaseEvent(p, at),
		PackageSlug:   p.Subject.PackageSlug,
		Travellers:    p.Pricing.Travellers,
	}
}

// NewTransitionEvent builds the event describing the move from prev to next.
// It returns nil when next is in a status that has no lifecycle event.
func NewTransitionEvent(prev, next *purchase.Purchase, at time.Time) Event {
	base := newPurchaseEvent(next, at)
	switch next.Status {
	case purchase.StatusPaid:
		return &PurchasePaid{
			PurchaseEvent:    base,
			GatewayPaymentID: next.GatewayPaymentID,
			PaymentMethod:    next.PaymentMethod,
			Recovered:        prev.Status == purchase.StatusFailed,
		}
	case purchase.StatusFailed:
		return &PurchaseFailed{PurchaseEvent: base, Reason: next.FailureReason}
	case purchase.StatusRefunded:
		e := &PurchaseRefunded{PurchaseEvent: base, RefundID: next.Refund.RefundID}
		if next.Refund.RefundedAmount != nil {
			e.RefundedAmount = *next.Refund.RefundedAmount
		}
		return e
	}
	return nil
}
