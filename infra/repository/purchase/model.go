package purchase

import (
	"time"

	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase is the gorm row for a ledger entry. Nullable unique columns give
// gateway payment and refund ids sparse uniqueness.
type Purchase struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	InternalOrderID  string    `gorm:"size:32;not null;uniqueIndex"`
	ReceiptNumber    string    `gorm:"size:32;not null;uniqueIndex"`
	GatewayOrderID   string    `gorm:"size:128;not null;uniqueIndex"`
	GatewayPaymentID *string   `gorm:"size:128;uniqueIndex"`
	GatewaySignature string    `gorm:"size:256"`

	UserID   string `gorm:"size:64;index"`
	FullName string `gorm:"size:200;not null"`
	Email    string `gorm:"size:320;not null;index"`
	Phone    string `gorm:"size:32;not null"`

	PackageID    string `gorm:"size:64"`
	PackageSlug  string `gorm:"size:200;not null"`
	PackageTitle string `gorm:"size:300;not null"`
	Destination  string `gorm:"size:200"`
	TravelDate   *time.Time

	Travellers int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	UnitLabel  string          `gorm:"size:64;not null"`
	Amount     decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Currency   string          `gorm:"size:3;not null"`

	Status         string              `gorm:"size:16;not null;index"`
	FailureReason  string              `gorm:"size:500"`
	RefundID       *string             `gorm:"size:128;uniqueIndex"`
	RefundedAmount decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	PaymentMethod  string              `gorm:"size:64"`
	Notes          string              `gorm:"type:text"`

	CreatedAt  time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time
	PaidAt     *time.Time
	FailedAt   *time.Time
	RefundedAt *time.Time
}

// TableName returns the table name for the Purchase model.
func (Purchase) TableName() string { return "purchases" }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toModel(p *purchase.Purchase) *Purchase {
	m := &Purchase{
		ID:               p.ID,
		InternalOrderID:  p.InternalOrderID,
		ReceiptNumber:    p.ReceiptNumber,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: optional(p.GatewayPaymentID),
		GatewaySignature: p.GatewaySignature,
		UserID:           p.Actor.UserID,
		FullName:         p.Actor.FullName,
		Email:            p.Actor.Email,
		Phone:            p.Actor.Phone,
		PackageID:        p.Subject.PackageID,
		PackageSlug:      p.Subject.PackageSlug,
		PackageTitle:     p.Subject.PackageTitle,
		Destination:      p.Subject.Destination,
		TravelDate:       p.Subject.TravelDate,
		Travellers:       p.Pricing.Travellers,
		UnitPrice:        p.Pricing.UnitPrice,
		UnitLabel:        p.Pricing.UnitLabel,
		Amount:           p.Pricing.Amount,
		Currency:         p.Pricing.Currency,
		Status:           p.Status.String(),
		FailureReason:    p.FailureReason,
		RefundID:         optional(p.Refund.RefundID),
		PaymentMethod:    p.PaymentMethod,
		Notes:            p.Notes,
		CreatedAt:        p.CreatedAt,
		PaidAt:           p.PaidAt,
		FailedAt:         p.FailedAt,
		RefundedAt:       p.RefundedAt,
	}
	if p.Refund.RefundedAmount != nil {
		m.RefundedAmount = decimal.NewNullDecimal(*p.Refund.RefundedAmount)
	}
	return m
}

func toDomain(m *Purchase) *purchase.Purchase {
	p := &purchase.Purchase{
		ID:               m.ID,
		InternalOrderID:  m.InternalOrderID,
		ReceiptNumber:    m.ReceiptNumber,
		GatewayOrderID:   m.GatewayOrderID,
		GatewayPaymentID: deref(m.GatewayPaymentID),
		GatewaySignature: m.GatewaySignature,
		Actor: purchase.Actor{
			UserID:   m.UserID,
			FullName: m.FullName,
			Email:    m.Email,
			Phone:    m.Phone,
		},
		Subject: purchase.Subject{
			PackageID:    m.PackageID,
			PackageSlug:  m.PackageSlug,
			PackageTitle: m.PackageTitle,
			Destination:  m.Destination,
			TravelDate:   utcPtr(m.TravelDate),
		},
		Pricing: purchase.Pricing{
			Travellers: m.Travellers,
			UnitPrice:  m.UnitPrice,
			UnitLabel:  m.UnitLabel,
			Amount:     m.Amount,
			Currency:   m.Currency,
		},
		Status:        purchase.Status(m.Status),
		FailureReason: m.FailureReason,
		Refund:        purchase.Refund{RefundID: deref(m.RefundID)},
		PaymentMethod: m.PaymentMethod,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt.UTC(),
		PaidAt:        utcPtr(m.PaidAt),
		FailedAt:      utcPtr(m.FailedAt),
		RefundedAt:    utcPtr(m.RefundedAt),
	}
	if m.RefundedAmount.Valid {
		amt := m.RefundedAmount.Decimal
		p.Refund.RefundedAmount = &amt
	}
	return p
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// transitionColumns lists every column a lifecycle transition may touch.
func transitionColumns(m *Purchase) map[string]any {
	cols := map[string]any{
		"status":             m.Status,
		"gateway_payment_id": m.GatewayPaymentID,
		"gateway_signature":  m.GatewaySignature,
		"failure_reason":     m.FailureReason,
		"refund_id":          m.RefundID,
		"refunded_amount":    m.RefundedAmount,
		"payment_method":     m.PaymentMethod,
		"notes":              m.Notes,
		"paid_at":            m.PaidAt,
		"failed_at":          m.FailedAt,
		"refunded_at":        m.RefundedAt,
	}
	return cols
}
