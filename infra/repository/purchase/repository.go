package purchase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirasaad/tripledger/infra/repository"
	"github.com/amirasaad/tripledger/pkg/domain/purchase"
	purchaserepo "github.com/amirasaad/tripledger/pkg/repository/purchase"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type purchaseRepository struct {
	db *gorm.DB
}

// New returns a purchase repository backed by db.
func New(db *gorm.DB) purchaserepo.Repository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, p *purchase.Purchase) error {
	return repository.WrapError(func() error {
		return r.db.WithContext(ctx).Create(toModel(p)).Error
	})
}

func (r *purchaseRepository) Resolve(
	ctx context.Context,
	key purchase.ResolutionKey,
) (*purchase.Purchase, error) {
	q := r.db.WithContext(ctx)
	if id, ok := key.LedgerID(); ok {
		q = q.Where("id = ?", id)
	} else if ref, ok := key.GatewayOrderID(); ok {
		q = q.Where("gateway_order_id = ?", ref)
	} else {
		return nil, fmt.Errorf("resolve %s: %w", key, purchase.ErrInvalidKey)
	}

	var m Purchase
	if err := q.Take(&m).Error; err != nil {
		return nil, repository.MapGormErrorToDomain(err)
	}
	return toDomain(&m), nil
}

func (r *purchaseRepository) Transition(
	ctx context.Context,
	next *purchase.Purchase,
	from purchase.Status,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Purchase{}).
		Where("id = ? AND status = ?", next.ID, from.String()).
		Updates(transitionColumns(toModel(next)))
	if res.Error != nil {
		// A payment or refund id already held by another purchase is a
		// storage fault here, not an idempotent repeat.
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, fmt.Errorf("transition %s: %w", next.ID, res.Error)
		}
		return false, repository.MapGormErrorToDomain(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *purchaseRepository) ListAll(ctx context.Context) ([]*purchase.Purchase, error) {
	return r.list(r.db.WithContext(ctx))
}

func (r *purchaseRepository) ListByOwner(
	ctx context.Context,
	userID, email string,
) ([]*purchase.Purchase, error) {
	userID = strings.TrimSpace(userID)
	email = strings.ToLower(strings.TrimSpace(email))

	var conds []clause.Expression
	if userID != "" {
		conds = append(conds, clause.Eq{Column: clause.Column{Name: "user_id"}, Value: userID})
	}
	if email != "" {
		conds = append(conds, clause.Expr{SQL: "LOWER(email) = ?", Vars: []any{email}})
	}
	if len(conds) == 0 {
		return []*purchase.Purchase{}, nil
	}
	return r.list(r.db.WithContext(ctx).Clauses(clause.Where{Exprs: []clause.Expression{clause.Or(conds...)}}))
}

func (r *purchaseRepository) list(q *gorm.DB) ([]*purchase.Purchase, error) {
	var rows []Purchase
	err := q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "created_at"}, Desc: true},
		{Column: clause.Column{Name: "internal_order_id"}, Desc: true},
	}}).Find(&rows).Error
	if err != nil {
		return nil, repository.MapGormErrorToDomain(err)
	}
	out := make([]*purchase.Purchase, 0, len(rows))
	for i := range rows {
		out = append(out, toDomain(&rows[i]))
	}
	return out, nil
}
