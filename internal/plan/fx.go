package plan

import (
	"github.com/workstack/hrsuite/internal/plan/repository"
	"github.com/workstack/hrsuite/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
