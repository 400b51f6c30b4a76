package tenant

import (
	"github.com/workstack/hrsuite/internal/tenant/repository"
	"github.com/workstack/hrsuite/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
