package purchase

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePurchaseRequest is sent by the checkout flow before handing the
// customer to the gateway. Required fields are checked by the ledger so the
// first missing one is reported by name.
type CreatePurchaseRequest struct {
	UserID         string           `json:"userId" validate:"max=128"`
	FullName       string           `json:"fullName" validate:"max=200"`
	Email          string           `json:"email" validate:"omitempty,email"`
	Phone          string           `json:"phone" validate:"max=32"`
	PackageID      string           `json:"packageId" validate:"max=128"`
	PackageSlug    string           `json:"packageSlug" validate:"max=200"`
	PackageTitle   string           `json:"packageTitle" validate:"max=300"`
	Destination    string           `json:"destination" validate:"max=200"`
	TravelDate     string           `json:"travelDate"`
	Travellers     *int             `json:"travellers"`
	UnitPrice      *decimal.Decimal `json:"unitPrice" swaggertype:"number"`
	UnitLabel      string           `json:"unitLabel" validate:"max=64"`
	Amount         *decimal.Decimal `json:"amount" swaggertype:"number"`
	Currency       string           `json:"currency" validate:"omitempty,len=3,alpha"`
	GatewayOrderID string           `json:"gatewayOrderId" validate:"max=128"`
	PaymentMethod  string           `json:"paymentMethod" validate:"max=64"`
	Notes          string           `json:"notes" validate:"max=2000"`
}

var travelDateLayouts = []string{time.DateOnly, time.RFC3339}

func (r *CreatePurchaseRequest) toDraft() (purchase.Draft, error) {
	d := purchase.Draft{
		GatewayOrderID: r.GatewayOrderID,
		Actor: purchase.Actor{
			UserID:   r.UserID,
			FullName: r.FullName,
			Email:    r.Email,
			Phone:    r.Phone,
		},
		Subject: purchase.Subject{
			PackageID:    strings.TrimSpace(r.PackageID),
			PackageSlug:  r.PackageSlug,
			PackageTitle: r.PackageTitle,
			Destination:  strings.TrimSpace(r.Destination),
		},
		Travellers:    r.Travellers,
		UnitPrice:     r.UnitPrice,
		UnitLabel:     r.UnitLabel,
		Amount:        r.Amount,
		Currency:      r.Currency,
		PaymentMethod: strings.TrimSpace(r.PaymentMethod),
		Notes:         strings.TrimSpace(r.Notes),
	}
	if raw := strings.TrimSpace(r.TravelDate); raw != "" {
		for _, layout := range travelDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				utc := t.UTC()
				d.Subject.TravelDate = &utc
				break
			}
		}
		if d.Subject.TravelDate == nil {
			return d, &purchase.ValidationError{Field: "travelDate", Reason: "must be a date (YYYY-MM-DD)"}
		}
	}
	return d, nil
}

// PurchaseRef names the purchase a callback is about. PurchaseID wins when
// both are given.
type PurchaseRef struct {
	PurchaseID     string `json:"purchaseId"`
	GatewayOrderID string `json:"gatewayOrderId"`
}

func (r PurchaseRef) key() (purchase.ResolutionKey, error) {
	if id := strings.TrimSpace(r.PurchaseID); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return purchase.ResolutionKey{}, &purchase.ValidationError{Field: "purchaseId", Reason: "must be a UUID"}
		}
		return purchase.ByLedgerID(parsed), nil
	}
	if gw := strings.TrimSpace(r.GatewayOrderID); gw != "" {
		return purchase.ByGatewayOrderID(gw), nil
	}
	return purchase.ResolutionKey{}, purchase.ErrInvalidKey
}

// MarkPaidRequest reports a gateway-verified payment.
type MarkPaidRequest struct {
	PurchaseRef
	GatewayPaymentID string `json:"gatewayPaymentId"`
	GatewaySignature string `json:"gatewaySignature"`
	PaymentMethod    string `json:"paymentMethod"`
}

// MarkFailedRequest reports a failed or abandoned payment.
type MarkFailedRequest struct {
	PurchaseRef
	GatewayPaymentID string `json:"gatewayPaymentId"`
	FailureReason    string `json:"failureReason"`
	FailureCode      string `json:"failureCode"`
	FailureSource    string `json:"failureSource"`
	FailureStep      string `json:"failureStep"`
	PaymentMethod    string `json:"paymentMethod"`
}

// MarkRefundedRequest reports a refund. RefundedAmount may be a number or a
// numeric string; anything else means the full amount.
type MarkRefundedRequest struct {
	PurchaseRef
	RefundID       string `json:"refundId"`
	RefundedAmount any    `json:"refundedAmount" swaggertype:"number"`
	PaymentMethod  string `json:"paymentMethod"`
	Notes          string `json:"notes"`
}

func parseAmount(v any) *decimal.Decimal {
	var (
		d   decimal.Decimal
		err error
	)
	switch x := v.(type) {
	case float64:
		d = decimal.NewFromFloat(x)
	case json.Number:
		d, err = decimal.NewFromString(x.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(x))
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &d
}

// PurchaseResponse is the public view of a ledger entry. The gateway
// signature stays internal.
type PurchaseResponse struct {
	ID               uuid.UUID        `json:"id"`
	InternalOrderID  string           `json:"internalOrderId"`
	ReceiptNumber    string           `json:"receiptNumber"`
	GatewayOrderID   string           `json:"gatewayOrderId"`
	GatewayPaymentID string           `json:"gatewayPaymentId,omitempty"`
	Actor            purchase.Actor   `json:"actor"`
	Subject          purchase.Subject `json:"subject"`
	Pricing          purchase.Pricing `json:"pricing"`
	Status           purchase.Status  `json:"status"`
	FailureReason    string           `json:"failureReason,omitempty"`
	Refund           *purchase.Refund `json:"refund,omitempty"`
	PaymentMethod    string           `json:"paymentMethod,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	PaidAt           *time.Time       `json:"paidAt,omitempty"`
	FailedAt         *time.Time       `json:"failedAt,omitempty"`
	RefundedAt       *time.Time       `json:"refundedAt,omitempty"`
}

// NewPurchaseResponse maps a ledger entry to its public view.
func NewPurchaseResponse(p *purchase.Purchase) PurchaseResponse {
	out := PurchaseResponse{
		ID:               p.ID,
		InternalOrderID:  p.InternalOrderID,
		ReceiptNumber:    p.ReceiptNumber,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Actor:            p.Actor,
		Subject:          p.Subject,
		Pricing:          p.Pricing,
		Status:           p.Status,
		FailureReason:    p.FailureReason,
		PaymentMethod:    p.PaymentMethod,
		Notes:            p.Notes,
		CreatedAt:        p.CreatedAt,
		PaidAt:           p.PaidAt,
		FailedAt:         p.FailedAt,
		RefundedAt:       p.RefundedAt,
	}
	if p.Refund.RefundID != "" || p.Refund.RefundedAmount != nil {
		refund := p.Refund
		out.Refund = &refund
	}
	return out
}

func newPurchaseResponses(ps []*purchase.Purchase) []PurchaseResponse {
	out := make([]PurchaseResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, NewPurchaseResponse(p))
	}
	return out
}
