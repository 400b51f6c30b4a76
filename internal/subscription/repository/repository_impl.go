package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindLiveByTenantID(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*subscriptiondomain.Subscription, error) {
	return first(db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", []subscriptiondomain.Status{
			subscriptiondomain.StatusTrial,
			subscriptiondomain.StatusActive,
		}).
		Order("created_at DESC"))
}

func (r *repo) CancelLive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, at time.Time, reason string) (int64, error) {
	result := db.WithContext(ctx).Model(&subscriptiondomain.Subscription{}).
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", []subscriptiondomain.Status{
			subscriptiondomain.StatusTrial,
			subscriptiondomain.StatusActive,
		}).
		Updates(map[string]any{
			"status":        subscriptiondomain.StatusCancelled,
			"cancelled_at":  at,
			"cancel_reason": reason,
			"updated_at":    at,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) Activate(ctx context.Context, db *gorm.DB, id snowflake.ID, startsAt time.Time, endsAt *time.Time) error {
	return db.WithContext(ctx).Model(&subscriptiondomain.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     subscriptiondomain.StatusActive,
			"starts_at":  startsAt,
			"ends_at":    endsAt,
			"updated_at": time.Now().UTC(),
		}).Error
}

func first(query *gorm.DB) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := query.First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}
