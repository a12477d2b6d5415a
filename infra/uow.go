package infra

import (
	"context"
	"fmt"
	"reflect"

	purchaserepo "github.com/amirasaad/tripledger/infra/repository/purchase"
	"github.com/amirasaad/tripledger/pkg/repository"
	"github.com/amirasaad/tripledger/pkg/repository/purchase"
	"gorm.io/gorm"
)

// UoW provides transaction boundary and repository access in one abstraction.
type UoW struct {
	db           *gorm.DB
	tx           *gorm.DB
	repoRegistry map[reflect.Type]func(*gorm.DB) any
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{
		db: db,
		repoRegistry: map[reflect.Type]func(*gorm.DB) any{
			reflect.TypeOf((*purchase.Repository)(nil)).Elem(): func(db *gorm.DB) any { return purchaserepo.New(db) },
		},
	}
}

// Do runs fn in a transaction, handing it a UoW bound to that transaction.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx, repoRegistry: u.repoRegistry})
	})
}

// GetRepository returns a repository of repoType bound to the current session.
func (u *UoW) GetRepository(repoType reflect.Type) (any, error) {
	constructor, ok := u.repoRegistry[repoType]
	if !ok {
		return nil, fmt.Errorf("unsupported repository type: %v", repoType)
	}
	return constructor(u.session()), nil
}

// PurchaseRepository returns the purchase repository for the current session.
func (u *UoW) PurchaseRepository() (purchase.Repository, error) {
	repoAny, err := u.GetRepository(reflect.TypeOf((*purchase.Repository)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return repoAny.(purchase.Repository), nil
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

var _ repository.UnitOfWork = (*UoW)(nil)
