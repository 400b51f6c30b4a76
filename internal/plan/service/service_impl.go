package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo plandomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo plandomain.Repository
}

func NewService(p Params) plandomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("plan.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context) ([]plandomain.Response, error) {
	plans, err := s.repo.ListActive(ctx, s.db)
	if err != nil {
		return nil, err
	}

	out := make([]plandomain.Response, 0, len(plans))
	for _, plan := range plans {
		out = append(out, toResponse(plan))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*plandomain.Response, error) {
	planID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || planID == 0 {
		return nil, plandomain.ErrInvalidID
	}

	plan, err := s.repo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrNotFound
	}

	resp := toResponse(*plan)
	return &resp, nil
}

func toResponse(plan plandomain.Plan) plandomain.Response {
	return plandomain.Response{
		ID:            plan.ID.String(),
		Name:          plan.Name,
		Price:         plan.Price,
		Currency:      plan.Currency,
		BillingPeriod: plan.BillingPeriod,
		Modules:       plan.ModuleNames(),
		Free:          plan.IsFree(),
		CreatedAt:     plan.CreatedAt,
	}
}
