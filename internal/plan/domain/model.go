// Package domain contains the subscription plan catalogue model.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BillingPeriod is the cadence a plan bills on.
type BillingPeriod string

const (
	PeriodMonthly  BillingPeriod = "monthly"
	PeriodYearly   BillingPeriod = "yearly"
	PeriodLifetime BillingPeriod = "lifetime"
)

// EndFrom computes the period end for a subscription starting at start.
// Lifetime plans never end. An unrecognized period falls back to one
// month; that is the documented default, not an error.
func (p BillingPeriod) EndFrom(start time.Time) *time.Time {
	switch p {
	case PeriodLifetime:
		return nil
	case PeriodYearly:
		end := start.AddDate(1, 0, 0)
		return &end
	case PeriodMonthly:
		end := start.AddDate(0, 1, 0)
		return &end
	default:
		end := start.AddDate(0, 1, 0)
		return &end
	}
}

// Plan is a priced tier. Priced plans are immutable once referenced by
// subscriptions; changes are made by creating new rows.
type Plan struct {
	ID            snowflake.ID   `gorm:"primaryKey"`
	Name          string         `gorm:"type:text;not null"`
	Price         int64          `gorm:"not null"`
	Currency      string         `gorm:"type:text;not null"`
	BillingPeriod BillingPeriod  `gorm:"type:text;not null"`
	Modules       datatypes.JSON `gorm:"type:jsonb"`
	Active        bool           `gorm:"not null;default:true"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Plan) TableName() string { return "plans" }

// IsFree reports whether this is a zero-price tier.
func (p Plan) IsFree() bool { return p.Price == 0 }

// ModuleNames decodes the plan's included module list.
func (p Plan) ModuleNames() []string {
	if len(p.Modules) == 0 {
		return nil
	}
	var names []string
	if err := json.Unmarshal(p.Modules, &names); err != nil {
		return nil
	}
	return names
}

// IncludesModule reports whether the plan grants the named module.
func (p Plan) IncludesModule(name string) bool {
	for _, m := range p.ModuleNames() {
		if m == name {
			return true
		}
	}
	return false
}

// EncodeModules builds the JSON module list for persistence.
func EncodeModules(names []string) datatypes.JSON {
	raw, err := json.Marshal(names)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}
