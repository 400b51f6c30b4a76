package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
	FindBySubdomain(ctx context.Context, db *gorm.DB, subdomain string) (*Tenant, error)
	FindByCustomDomain(ctx context.Context, db *gorm.DB, host string) (*Tenant, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
	UpdateProvisioning(ctx context.Context, db *gorm.DB, id snowflake.ID, status ProvisioningStatus) error
	MarkTrialUsed(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
