package purchase

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/amirasaad/tripledger/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationError names the first offending field of a request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return domain.ErrValidation }

func missing(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Draft is the checkout-initiation input for a new purchase. Numeric fields
// are pointers so that "absent" and "zero" stay distinguishable.
type Draft struct {
	GatewayOrderID string
	Actor          Actor
	Subject        Subject
	Travellers     *int
	UnitPrice      *decimal.Decimal
	UnitLabel      string
	Amount         *decimal.Decimal
	Currency       string
	PaymentMethod  string
	Notes          string
}

// Validate checks required fields in a fixed order and reports the first
// failure. It also normalizes whitespace, email case and currency.
func (d *Draft) Validate() error {
	d.Actor.FullName = strings.TrimSpace(d.Actor.FullName)
	d.Actor.Email = strings.ToLower(strings.TrimSpace(d.Actor.Email))
	d.Actor.Phone = strings.TrimSpace(d.Actor.Phone)
	d.Actor.UserID = strings.TrimSpace(d.Actor.UserID)
	d.Subject.PackageSlug = strings.TrimSpace(d.Subject.PackageSlug)
	d.Subject.PackageTitle = strings.TrimSpace(d.Subject.PackageTitle)
	d.UnitLabel = strings.TrimSpace(d.UnitLabel)
	d.GatewayOrderID = strings.TrimSpace(d.GatewayOrderID)

	switch {
	case d.Actor.FullName == "":
		return missing("fullName")
	case d.Actor.Email == "":
		return missing("email")
	case d.Actor.Phone == "":
		return missing("phone")
	case d.Subject.PackageSlug == "":
		return missing("packageSlug")
	case d.Subject.PackageTitle == "":
		return missing("packageTitle")
	case d.Travellers == nil:
		return missing("travellers")
	case *d.Travellers <= 0:
		return invalid("travellers", "must be a positive integer")
	case d.UnitPrice == nil:
		return missing("unitPrice")
	case d.UnitPrice.IsNegative():
		return invalid("unitPrice", "must not be negative")
	case d.UnitLabel == "":
		return missing("unitLabel")
	case d.Amount == nil:
		return missing("amount")
	case d.Amount.IsNegative():
		return invalid("amount", "must not be negative")
	case d.GatewayOrderID == "":
		return missing("gatewayOrderId")
	}

	cur, err := normalizeCurrency(d.Currency)
	if err != nil {
		return err
	}
	d.Currency = cur
	return nil
}

func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	if len(code) != 3 {
		return "", invalid("currency", "must be a 3-letter code")
	}
	for _, r := range code {
		if !unicode.IsLetter(r) {
			return "", invalid("currency", "must be a 3-letter code")
		}
	}
	return code, nil
}

// New builds a created purchase from a validated draft.
func New(d Draft, ids Identifiers, now time.Time) *Purchase {
	return &Purchase{
		ID:              uuid.New(),
		InternalOrderID: ids.InternalOrderID,
		ReceiptNumber:   ids.ReceiptNumber,
		GatewayOrderID:  d.GatewayOrderID,
		Actor:           d.Actor,
		Subject:         d.Subject,
		Pricing: Pricing{
			Travellers: *d.Travellers,
			UnitPrice:  *d.UnitPrice,
			UnitLabel:  d.UnitLabel,
			Amount:     *d.Amount,
			Currency:   d.Currency,
		},
		Status:        StatusCreated,
		PaymentMethod: d.PaymentMethod,
		Notes:         d.Notes,
		CreatedAt:     now.UTC(),
	}
}
