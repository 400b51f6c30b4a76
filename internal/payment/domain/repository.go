package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/workstack/hrsuite/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	// FindByIDForUpdate loads a payment under a row lock. Call inside a
	// transaction.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Payment, error)
	// NextInvoiceSeq reserves the tenant's next invoice sequence
	// number. Call inside the same transaction that stamps the payment.
	NextInvoiceSeq(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID) (int64, error)
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	// ListByTenantID pages newest-first through the tenant's payments.
	ListByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, page pagination.Pagination) ([]Payment, pagination.PageInfo, error)
}
