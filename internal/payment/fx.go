package payment

import (
	"github.com/workstack/hrsuite/internal/payment/repository"
	"github.com/workstack/hrsuite/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
