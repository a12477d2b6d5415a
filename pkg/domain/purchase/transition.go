package purchase

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Transition is a requested reconciliation step. The table of which current
// statuses accept which transition lives in AllowedFrom; anything outside it
// is a silent no-op for the ledger.
//
//	created  --confirm--> paid
//	created  --fail-----> failed
//	failed   --confirm--> paid      (gateway success overrides a client-reported failure)
//	paid     --refund---> refunded
//	refunded is absorbing.
type Transition interface {
	// Name is a short label for logs and events.
	Name() string
	// Target is the status reached when the transition applies.
	Target() Status
	// AllowedFrom reports whether the transition applies from current.
	AllowedFrom(current Status) bool
	// Validate rejects malformed requests before any lookup happens.
	Validate() error

	mutate(p *Purchase, now time.Time)
}

// Apply returns the purchase as it would be after t, and whether t applies.
// The input is never modified; when t does not apply the original is returned.
func Apply(p *Purchase, t Transition, now time.Time) (*Purchase, bool) {
	if !t.AllowedFrom(p.Status) {
		return p, false
	}
	next := *p
	if p.Refund.RefundedAmount != nil {
		amt := *p.Refund.RefundedAmount
		next.Refund.RefundedAmount = &amt
	}
	now = now.UTC()
	t.mutate(&next, now)
	next.Status = t.Target()
	return &next, true
}

func setOnce(ts **time.Time, now time.Time) {
	if *ts == nil {
		t := now
		*ts = &t
	}
}

// Confirm records a gateway-verified successful payment.
type Confirm struct {
	GatewayPaymentID string
	GatewaySignature string
	PaymentMethod    string
}

func (Confirm) Name() string { return "confirm" }
func (Confirm) Target() Status { return StatusPaid }
func (Confirm) AllowedFrom(current Status) bool {
	return current == StatusCreated || current == StatusFailed
}

func (c Confirm) Validate() error {
	switch {
	case strings.TrimSpace(c.GatewayPaymentID) == "":
		return missing("gatewayPaymentId")
	case strings.TrimSpace(c.GatewaySignature) == "":
		return missing("gatewaySignature")
	}
	return nil
}

func (c Confirm) mutate(p *Purchase, now time.Time) {
	p.GatewayPaymentID = strings.TrimSpace(c.GatewayPaymentID)
	p.GatewaySignature = strings.TrimSpace(c.GatewaySignature)
	if c.PaymentMethod != "" {
		p.PaymentMethod = c.PaymentMethod
	}
	p.FailureReason = ""
	setOnce(&p.PaidAt, now)
}

// Fail records a failed payment attempt reported by the gateway or a client.
type Fail struct {
	Reason           string
	Code             string
	Source           string
	Step             string
	GatewayPaymentID string
	PaymentMethod    string
}

func (Fail) Name() string { return "fail" }
func (Fail) Target() Status { return StatusFailed }
func (Fail) AllowedFrom(current Status) bool {
	return current == StatusCreated
}

func (Fail) Validate() error { return nil }

func (f Fail) mutate(p *Purchase, now time.Time) {
	reason := JoinFailureReason(f.Reason, f.Code, f.Source, f.Step)
	if p.FailureReason != "" && reason != "" {
		reason = p.FailureReason + FailureReasonSeparator + reason
	} else if reason == "" {
		reason = p.FailureReason
	}
	p.FailureReason = truncate(reason, MaxFailureReasonLength)
	if p.GatewayPaymentID == "" && f.GatewayPaymentID != "" {
		p.GatewayPaymentID = strings.TrimSpace(f.GatewayPaymentID)
	}
	if f.PaymentMethod != "" {
		p.PaymentMethod = f.PaymentMethod
	}
	setOnce(&p.FailedAt, now)
}

// FailureReasonSeparator joins the parts of a failure reason.
const FailureReasonSeparator = " | "

// JoinFailureReason joins the non-empty parts and bounds the result.
func JoinFailureReason(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return truncate(strings.Join(kept, FailureReasonSeparator), MaxFailureReasonLength)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// MarkRefunded records a refund of a paid purchase. A nil, negative or
// over-the-amount RefundedAmount falls back to the full purchase amount.
type MarkRefunded struct {
	RefundID       string
	RefundedAmount *decimal.Decimal
	PaymentMethod  string
	Notes          string
}

func (MarkRefunded) Name() string { return "refund" }
func (MarkRefunded) Target() Status { return StatusRefunded }
func (MarkRefunded) AllowedFrom(current Status) bool {
	return current == StatusPaid
}

func (MarkRefunded) Validate() error { return nil }

// EffectiveAmount is the amount recorded as refunded for p.
func (r MarkRefunded) EffectiveAmount(p *Purchase) decimal.Decimal {
	if r.RefundedAmount == nil || r.RefundedAmount.IsNegative() ||
		r.RefundedAmount.GreaterThan(p.Pricing.Amount) {
		return p.Pricing.Amount
	}
	return *r.RefundedAmount
}

func (r MarkRefunded) mutate(p *Purchase, now time.Time) {
	amount := r.EffectiveAmount(p)
	p.Refund.RefundedAmount = &amount
	if id := strings.TrimSpace(r.RefundID); id != "" {
		p.Refund.RefundID = id
	}
	if r.PaymentMethod != "" {
		p.PaymentMethod = r.PaymentMethod
	}
	if note := strings.TrimSpace(r.Notes); note != "" {
		if p.Notes == "" {
			p.Notes = note
		} else {
			p.Notes = p.Notes + "\n" + note
		}
	}
	setOnce(&p.RefundedAt, now)
}
