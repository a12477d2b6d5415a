package repository

import (
	"errors"

	"github.com/amirasaad/tripledger/pkg/domain"
	"gorm.io/gorm"
)

// MapGormErrorToDomain converts GORM errors to domain errors.
// It walks the error chain; with TranslateError enabled on the connection,
// unique-constraint violations from postgres and sqlite arrive as
// gorm.ErrDuplicatedKey.
func MapGormErrorToDomain(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrAlreadyExists
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	}
	return err
}

// WrapError wraps a GORM operation and maps its error.
//
//	err := WrapError(func() error {
//	    return r.db.WithContext(ctx).Create(row).Error
//	})
func WrapError(op func() error) error {
	return MapGormErrorToDomain(op())
}
