package withdrawal

import (
	"github.com/smallbiznis/royalty/internal/withdrawal/repository"
	"github.com/smallbiznis/royalty/internal/withdrawal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("withdrawal.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
