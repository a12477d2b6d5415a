package repository

import (
	"context"
	"reflect"

	"github.com/amirasaad/tripledger/pkg/repository/purchase"
)

// UnitOfWork defines the contract for transactional work and type-safe repository access.
//
// Repositories obtained from the UnitOfWork handed to Do share its transaction.
// Outside Do they run on the plain connection pool.
type UnitOfWork interface {
	// Do executes fn within a transaction boundary. If fn returns an error,
	// the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	// GetRepository returns a repository of the requested type bound to the
	// current session.
	//
	//	repoAny, err := uow.GetRepository(reflect.TypeOf((*purchase.Repository)(nil)).Elem())
	//	repo := repoAny.(purchase.Repository)
	GetRepository(repoType reflect.Type) (any, error)

	PurchaseRepository() (purchase.Repository, error)
}
