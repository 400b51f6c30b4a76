package subscription

import (
	"github.com/workstack/hrsuite/internal/subscription/repository"
	"github.com/workstack/hrsuite/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
