package purchase

import (
	"context"

	"github.com/amirasaad/tripledger/pkg/domain/purchase"
)

// Repository defines data access for ledger entries. Records are never deleted.
type Repository interface {
	// Create inserts a new purchase. A clash on any unique identifier
	// returns domain.ErrAlreadyExists.
	Create(ctx context.Context, p *purchase.Purchase) error

	// Resolve looks a purchase up by key; domain.ErrNotFound when absent.
	Resolve(ctx context.Context, key purchase.ResolutionKey) (*purchase.Purchase, error)

	// Transition stores next only if the stored status still equals from.
	// It reports false when another writer changed the record first.
	Transition(ctx context.Context, next *purchase.Purchase, from purchase.Status) (bool, error)

	// ListAll returns every purchase, newest first.
	ListAll(ctx context.Context) ([]*purchase.Purchase, error)

	// ListByOwner returns purchases whose actor matches userID or email
	// (case-insensitive), newest first. Empty identifiers never match.
	ListByOwner(ctx context.Context, userID, email string) ([]*purchase.Purchase, error)
}
