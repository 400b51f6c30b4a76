package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/workstack/hrsuite/internal/payment/domain"
	"github.com/workstack/hrsuite/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() paymentdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *paymentdomain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*paymentdomain.Payment, error) {
	query := tx.WithContext(ctx).Where("id = ?", id)
	// sqlite has no row locks; its single writer serializes anyway.
	if tx.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return first(query)
}

func (r *repo) NextInvoiceSeq(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) (int64, error) {
	var next int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(invoice_seq), 0) + 1 FROM payments WHERE tenant_id = ?`,
		tenantID,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *paymentdomain.Payment) error {
	return db.WithContext(ctx).Save(payment).Error
}

func (r *repo) ListByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, page pagination.Pagination) ([]paymentdomain.Payment, pagination.PageInfo, error) {
	limit := page.Limit()
	query := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id DESC").
		Limit(limit + 1)
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, pagination.PageInfo{}, err
		}
		query = query.Where("id < ?", cursor.ID)
	}

	var payments []paymentdomain.Payment
	if err := query.Find(&payments).Error; err != nil {
		return nil, pagination.PageInfo{}, err
	}
	payments, info := pagination.BuildPage(payments, limit, func(p paymentdomain.Payment) pagination.Cursor {
		return pagination.Cursor{ID: p.ID}
	})
	return payments, info, nil
}

func first(query *gorm.DB) (*paymentdomain.Payment, error) {
	var payment paymentdomain.Payment
	err := query.First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}
