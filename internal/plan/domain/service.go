package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
}

type Response struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Price         int64         `json:"price"`
	Currency      string        `json:"currency"`
	BillingPeriod BillingPeriod `json:"billing_period"`
	Modules       []string      `json:"modules"`
	Free          bool          `json:"free"`
	CreatedAt     time.Time     `json:"created_at"`
}

var (
	ErrInvalidID = errors.New("invalid_plan_id")
	ErrNotFound  = errors.New("plan_not_found")
)
