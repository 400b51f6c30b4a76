// Package domain contains the subscription lifecycle model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// Live reports whether the status counts against the one-live-
// subscription invariant.
func (s Status) Live() bool {
	return s == StatusTrial || s == StatusActive
}

// Subscription binds one tenant to one plan over a time window.
type Subscription struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	TenantID snowflake.ID `gorm:"not null;index"`
	PlanID   snowflake.ID `gorm:"not null;index"`

	Status      Status     `gorm:"type:text;not null"`
	StartsAt    time.Time  `gorm:"not null"`
	EndsAt      *time.Time `gorm:""`
	TrialEndsAt *time.Time `gorm:""`

	Amount   int64  `gorm:"not null"`
	Currency string `gorm:"type:text;not null"`

	CancelledAt  *time.Time `gorm:""`
	CancelReason *string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Subscription) TableName() string { return "subscriptions" }

// ValidAt reports whether the subscription grants access at t.
func (s Subscription) ValidAt(t time.Time) bool {
	switch s.Status {
	case StatusTrial:
		return s.TrialEndsAt != nil && t.Before(*s.TrialEndsAt)
	case StatusActive:
		return s.EndsAt == nil || t.Before(*s.EndsAt)
	default:
		return false
	}
}
