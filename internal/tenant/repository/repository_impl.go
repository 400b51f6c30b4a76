package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() tenantdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tenant *tenantdomain.Tenant) error {
	return db.WithContext(ctx).Create(tenant).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*tenantdomain.Tenant, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindBySubdomain(ctx context.Context, db *gorm.DB, subdomain string) (*tenantdomain.Tenant, error) {
	return first(db.WithContext(ctx).Where("subdomain = ?", strings.ToLower(strings.TrimSpace(subdomain))))
}

func (r *repo) FindByCustomDomain(ctx context.Context, db *gorm.DB, host string) (*tenantdomain.Tenant, error) {
	return first(db.WithContext(ctx).Where("custom_domain = ?", strings.ToLower(strings.TrimSpace(host))))
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status tenantdomain.Status) error {
	return db.WithContext(ctx).Model(&tenantdomain.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) UpdateProvisioning(ctx context.Context, db *gorm.DB, id snowflake.ID, status tenantdomain.ProvisioningStatus) error {
	return db.WithContext(ctx).Model(&tenantdomain.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"provisioning_status": status,
			"updated_at":          time.Now().UTC(),
		}).Error
}

func (r *repo) MarkTrialUsed(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Model(&tenantdomain.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"has_used_trial": true,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func first(query *gorm.DB) (*tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := query.First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}
