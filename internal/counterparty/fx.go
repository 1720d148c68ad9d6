package counterparty

import (
	"github.com/smallbiznis/gridsign/internal/counterparty/repository"
	"github.com/smallbiznis/gridsign/internal/counterparty/service"
	"go.uber.org/fx"
)

var Module = fx.Module("counterparty.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
