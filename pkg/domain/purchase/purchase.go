// Package purchase holds the purchase ledger entry, its state machine and
// the identifiers minted for it.
package purchase

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultCurrency is used when a checkout does not name a currency.
	DefaultCurrency = "INR"
	// MaxFailureReasonLength bounds the stored failure reason.
	MaxFailureReasonLength = 500
)

// Actor identifies who attempted the purchase. UserID is empty for guest checkouts.
type Actor struct {
	UserID   string `json:"userId,omitempty"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Subject is a snapshot of what was bought, captured at checkout time so the
// record stays readable after catalog data changes or disappears.
type Subject struct {
	PackageID    string     `json:"packageId,omitempty"`
	PackageSlug  string     `json:"packageSlug"`
	PackageTitle string     `json:"packageTitle"`
	Destination  string     `json:"destination,omitempty"`
	TravelDate   *time.Time `json:"travelDate,omitempty"`
}

// Pricing is supplied by the checkout flow and trusted as-is. Amount is not
// recomputed from UnitPrice and Travellers.
type Pricing struct {
	Travellers int             `json:"travellers"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	UnitLabel  string          `json:"unitLabel"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// Refund describes the refund applied to a paid purchase.
type Refund struct {
	RefundID       string           `json:"refundId,omitempty"`
	RefundedAmount *decimal.Decimal `json:"refundedAmount,omitempty"`
}

// Purchase is one checkout attempt and its lifecycle up to financial resolution.
//
// PaymentMethod is advisory: the last applied confirm, fail or refund call
// that carries one overwrites it.
type Purchase struct {
	ID               uuid.UUID  `json:"id"`
	InternalOrderID  string     `json:"internalOrderId"`
	ReceiptNumber    string     `json:"receiptNumber"`
	GatewayOrderID   string     `json:"gatewayOrderId"`
	GatewayPaymentID string     `json:"gatewayPaymentId,omitempty"`
	GatewaySignature string     `json:"gatewaySignature,omitempty"`
	Actor            Actor      `json:"actor"`
	Subject          Subject    `json:"subject"`
	Pricing          Pricing    `json:"pricing"`
	Status           Status     `json:"status"`
	FailureReason    string     `json:"failureReason,omitempty"`
	Refund           Refund     `json:"refund"`
	PaymentMethod    string     `json:"paymentMethod,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	PaidAt           *time.Time `json:"paidAt,omitempty"`
	FailedAt         *time.Time `json:"failedAt,omitempty"`
	RefundedAt       *time.Time `json:"refundedAt,omitempty"`
}

// OwnedBy reports whether the purchase belongs to the given user id or email.
// Either identifier may be empty; an empty identifier never matches.
func (p *Purchase) OwnedBy(userID, email string) bool {
	if userID != "" && p.Actor.UserID == userID {
		return true
	}
	return email != "" && strings.EqualFold(p.Actor.Email, email)
}
