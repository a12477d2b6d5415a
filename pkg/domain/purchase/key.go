package purchase

import (
	"fmt"

	"github.com/amirasaad/tripledger/pkg/domain"
	"github.com/google/uuid"
)

// ErrInvalidKey is returned when a request names neither a ledger id nor a
// gateway order id.
var ErrInvalidKey = fmt.Errorf("%w: purchaseId or gatewayOrderId is required", domain.ErrValidation)

type keyKind uint8

const (
	keyLedgerID keyKind = iota + 1
	keyGatewayOrderID
)

// ResolutionKey identifies one purchase either by its ledger id or by the
// gateway order id it was created for. The zero value resolves nothing.
type ResolutionKey struct {
	kind           keyKind
	ledgerID       uuid.UUID
	gatewayOrderID string
}

// ByLedgerID resolves a purchase by the ledger's own id.
func ByLedgerID(id uuid.UUID) ResolutionKey {
	return ResolutionKey{kind: keyLedgerID, ledgerID: id}
}

// ByGatewayOrderID resolves a purchase by the payment gateway's order id.
func ByGatewayOrderID(id string) ResolutionKey {
	return ResolutionKey{kind: keyGatewayOrderID, gatewayOrderID: id}
}

// ParseKey turns a free-form reference into a key: anything that parses as a
// UUID is a ledger id, everything else a gateway order id.
func ParseKey(ref string) ResolutionKey {
	if id, err := uuid.Parse(ref); err == nil {
		return ByLedgerID(id)
	}
	return ByGatewayOrderID(ref)
}

// LedgerID returns the ledger id and whether the key is of that kind.
func (k ResolutionKey) LedgerID() (uuid.UUID, bool) {
	return k.ledgerID, k.kind == keyLedgerID
}

// GatewayOrderID returns the gateway order id and whether the key is of that kind.
func (k ResolutionKey) GatewayOrderID() (string, bool) {
	return k.gatewayOrderID, k.kind == keyGatewayOrderID
}

// Valid reports whether the key carries a usable identifier.
func (k ResolutionKey) Valid() bool {
	switch k.kind {
	case keyLedgerID:
		return k.ledgerID != uuid.Nil
	case keyGatewayOrderID:
		return k.gatewayOrderID != ""
	}
	return false
}

func (k ResolutionKey) String() string {
	switch k.kind {
	case keyLedgerID:
		return fmt.Sprintf("purchaseId=%s", k.ledgerID)
	case keyGatewayOrderID:
		return fmt.Sprintf("gatewayOrderId=%s", k.gatewayOrderID)
	}
	return "<none>"
}
