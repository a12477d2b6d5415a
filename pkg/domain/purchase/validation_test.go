package purchase

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/amirasaad/tripledger/pkg/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() Draft {
	travellers := 2
	unitPrice := decimal.NewFromInt(7500)
	amount := decimal.NewFromInt(15000)
	return Draft{
		GatewayOrderID: "gw_1",
		Actor:          Actor{FullName: "A", Email: "a@x.com", Phone: "999"},
		Subject:        Subject{PackageSlug: "goa-beach", PackageTitle: "Goa Beach Escape"},
		Travellers:     &travellers,
		UnitPrice:      &unitPrice,
		UnitLabel:      "per person",
		Amount:         &amount,
	}
}

func TestDraft_ValidateNamesFirstMissingField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field string
		clear func(d *Draft)
	}{
		{"fullName", func(d *Draft) { d.Actor.FullName = "  " }},
		{"email", func(d *Draft) { d.Actor.Email = "" }},
		{"phone", func(d *Draft) { d.Actor.Phone = "" }},
		{"packageSlug", func(d *Draft) { d.Subject.PackageSlug = "" }},
		{"packageTitle", func(d *Draft) { d.Subject.PackageTitle = "" }},
		{"travellers", func(d *Draft) { d.Travellers = nil }},
		{"unitPrice", func(d *Draft) { d.UnitPrice = nil }},
		{"unitLabel", func(d *Draft) { d.UnitLabel = "" }},
		{"amount", func(d *Draft) { d.Amount = nil }},
		{"gatewayOrderId", func(d *Draft) { d.GatewayOrderID = "" }},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			t.Parallel()
			d := validDraft()
			tc.clear(&d)

			err := d.Validate()

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.True(t, errors.Is(err, domain.ErrValidation))
		})
	}
}

func TestDraft_ValidateReportsEarliestField(t *testing.T) {
	t.Parallel()
	d := validDraft()
	d.Actor.Email = ""
	d.GatewayOrderID = ""

	var verr *ValidationError
	require.ErrorAs(t, d.Validate(), &verr)
	assert.Equal(t, "email", verr.Field)
}

func TestDraft_ValidateRanges(t *testing.T) {
	t.Parallel()

	zero := 0
	negative := decimal.NewFromInt(-1)

	d := validDraft()
	d.Travellers = &zero
	var verr *ValidationError
	require.ErrorAs(t, d.Validate(), &verr)
	assert.Equal(t, "travellers", verr.Field)

	d = validDraft()
	d.UnitPrice = &negative
	require.ErrorAs(t, d.Validate(), &verr)
	assert.Equal(t, "unitPrice", verr.Field)

	d = validDraft()
	d.Amount = &negative
	require.ErrorAs(t, d.Validate(), &verr)
	assert.Equal(t, "amount", verr.Field)

	d = validDraft()
	d.Currency = "RUPEE"
	require.ErrorAs(t, d.Validate(), &verr)
	assert.Equal(t, "currency", verr.Field)
}

func TestDraft_ValidateNormalizes(t *testing.T) {
	t.Parallel()
	d := validDraft()
	d.Actor.Email = "  A@X.com "
	d.Currency = "usd"

	require.NoError(t, d.Validate())
	assert.Equal(t, "a@x.com", d.Actor.Email)
	assert.Equal(t, "USD", d.Currency)

	d = validDraft()
	require.NoError(t, d.Validate())
	assert.Equal(t, DefaultCurrency, d.Currency)
}

func TestNew(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	d := validDraft()
	require.NoError(t, d.Validate())

	p := New(d, MintIdentifiers(now), now)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, StatusCreated, p.Status)
	assert.Regexp(t, regexp.MustCompile(`^PYO-\d{4}-\d{6}$`), p.InternalOrderID)
	assert.True(t, decimal.NewFromInt(15000).Equal(p.Pricing.Amount))
	assert.Equal(t, now, p.CreatedAt)
	assert.Nil(t, p.PaidAt)
}
