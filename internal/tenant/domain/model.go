// Package domain contains the tenant model and the resolver contract.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the administrative lifecycle state of a tenant. Tenants are
// never hard-deleted; status changes only.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// ParseStatus normalizes and validates a tenant status string.
func ParseStatus(raw string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusActive, StatusSuspended, StatusRejected, StatusCancelled:
		return s, true
	default:
		return "", false
	}
}

// ProvisioningStatus tracks the tenant's dedicated database.
type ProvisioningStatus string

const (
	ProvisioningPending     ProvisioningStatus = "pending"
	ProvisioningProvisioned ProvisioningStatus = "provisioned"
	ProvisioningFailed      ProvisioningStatus = "failed"
)

// Tenant is one customer organization, isolated by subdomain and a
// dedicated data store.
type Tenant struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Subdomain    string       `gorm:"type:text;not null;uniqueIndex"`
	CustomDomain *string      `gorm:"type:text;uniqueIndex"`
	Name         string       `gorm:"type:text;not null"`
	Email        string       `gorm:"type:text;not null"`

	Status             Status             `gorm:"type:text;not null"`
	DatabaseName       string             `gorm:"type:text;not null"`
	ProvisioningStatus ProvisioningStatus `gorm:"column:provisioning_status;type:text;not null"`
	HasUsedTrial       bool               `gorm:"not null;default:false"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Tenant) TableName() string { return "tenants" }
