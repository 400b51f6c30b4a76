package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	// FindLiveByTenantID returns the tenant's trial or active
	// subscription, if any.
	FindLiveByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*Subscription, error)
	// CancelLive cancels the tenant's live subscription, stamping the
	// cancellation time and reason. Returns the number of rows changed.
	CancelLive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, at time.Time, reason string) (int64, error)
	// Activate flips a subscription to active with a fresh window.
	Activate(ctx context.Context, db *gorm.DB, id snowflake.ID, startsAt time.Time, endsAt *time.Time) error
}
