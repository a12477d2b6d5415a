package purchase

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMintIdentifiers(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	ids := MintIdentifiers(at)

	suffix := at.UnixMilli() % 1_000_000
	assert.Regexp(t, `^PYO-2026-\d{6}$`, ids.InternalOrderID)
	assert.Regexp(t, `^RCT-20261015-\d{6}$`, ids.ReceiptNumber)
	assert.Equal(t, ids.InternalOrderID[len("PYO-2026-"):], ids.ReceiptNumber[len("RCT-20261015-"):])
	assert.Equal(t, suffix, int64(atoi(ids.InternalOrderID[len("PYO-2026-"):])))
}

func TestMintIdentifiers_ZeroPadsSuffix(t *testing.T) {
	t.Parallel()
	at := time.UnixMilli(1_760_000_000_042).UTC()

	ids := MintIdentifiers(at)

	assert.Equal(t, "000042", ids.InternalOrderID[len(ids.InternalOrderID)-6:])
	assert.Equal(t, "000042", ids.ReceiptNumber[len(ids.ReceiptNumber)-6:])
}

func TestMintIdentifiers_DiffersAcrossMilliseconds(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	a := MintIdentifiers(at)
	b := MintIdentifiers(at.Add(time.Millisecond))

	assert.NotEqual(t, a.InternalOrderID, b.InternalOrderID)
	assert.NotEqual(t, a.ReceiptNumber, b.ReceiptNumber)
}

func TestParseKey(t *testing.T) {
	t.Parallel()
	id := uuid.New()

	k := ParseKey(id.String())
	got, ok := k.LedgerID()
	assert.True(t, ok)
	assert.Equal(t, id, got)

	k = ParseKey("order_Nx81")
	ref, ok := k.GatewayOrderID()
	assert.True(t, ok)
	assert.Equal(t, "order_Nx81", ref)
	assert.True(t, k.Valid())

	assert.False(t, ResolutionKey{}.Valid())
	assert.False(t, ByGatewayOrderID("").Valid())
	assert.False(t, ByLedgerID(uuid.Nil).Valid())
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
