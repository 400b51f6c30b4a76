package migration

import (
	paymentdomain "github.com/workstack/hrsuite/internal/payment/domain"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	"github.com/workstack/hrsuite/internal/seed"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		// Versioned migrations carry the partial unique indexes and
		// only target postgres. Other dialects are for development and
		// tests; they get the gorm schema instead.
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&tenantdomain.Tenant{},
				&plandomain.Plan{},
				&subscriptiondomain.Subscription{},
				&paymentdomain.Payment{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultPlans(conn)
	}),
)
