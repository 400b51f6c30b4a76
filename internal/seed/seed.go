// Package seed bootstraps the plan catalogue on a fresh install.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	"gorm.io/gorm"
)

var coreSet = []string{"dashboard", "account", "settings", "support"}

func withCore(extra ...string) []string {
	return append(append([]string{}, coreSet...), extra...)
}

// EnsureDefaultPlans seeds the plan catalogue when it is empty. Existing
// catalogues are left alone so operator edits survive restarts.
func EnsureDefaultPlans(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&plandomain.Plan{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		plans := []plandomain.Plan{
			{
				Name:          "Free",
				Price:         0,
				BillingPeriod: plandomain.PeriodMonthly,
				Modules:       plandomain.EncodeModules(withCore()),
			},
			{
				Name:          "Starter",
				Price:         2900,
				BillingPeriod: plandomain.PeriodMonthly,
				Modules:       plandomain.EncodeModules(withCore("hrm", "attendance")),
			},
			{
				Name:          "Professional",
				Price:         7900,
				BillingPeriod: plandomain.PeriodMonthly,
				Modules:       plandomain.EncodeModules(withCore("hrm", "attendance", "payroll", "recruitment", "projects")),
			},
			{
				Name:          "Enterprise",
				Price:         79000,
				BillingPeriod: plandomain.PeriodYearly,
				Modules:       plandomain.EncodeModules(withCore("hrm", "attendance", "payroll", "recruitment", "projects", "accounting", "crm", "assets")),
			},
		}

		for i := range plans {
			plans[i].ID = node.Generate()
			plans[i].Currency = "USD"
			plans[i].Active = true
			plans[i].CreatedAt = now
			plans[i].UpdatedAt = now
			if err := tx.Create(&plans[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
