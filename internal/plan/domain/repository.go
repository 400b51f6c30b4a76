package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
	ListActive(ctx context.Context, db *gorm.DB) ([]Plan, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
}
