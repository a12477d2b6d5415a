package purchase

import (
	"fmt"
	"time"
)

const (
	InternalOrderPrefix = "PYO"
	ReceiptPrefix       = "RCT"
)

// Identifiers are the human-facing references minted for a new purchase.
type Identifiers struct {
	InternalOrderID string
	ReceiptNumber   string
}

// MintIdentifiers derives both identifiers from t alone. Uniqueness is not
// guaranteed here; the store's unique indexes reject a collision and the
// caller retries creation, which mints again from a later instant.
func MintIdentifiers(t time.Time) Identifiers {
	t = t.UTC()
	suffix := t.UnixMilli() % 1_000_000
	return Identifiers{
		InternalOrderID: fmt.Sprintf("%s-%04d-%06d", InternalOrderPrefix, t.Year(), suffix),
		ReceiptNumber:   fmt.Sprintf("%s-%s-%06d", ReceiptPrefix, t.Format("20060102"), suffix),
	}
}
