package document

import (
	"github.com/smallbiznis/gridsign/internal/document/domain"
	"github.com/smallbiznis/gridsign/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(service.New),
	fx.Provide(
		func(s domain.Service) domain.Renderer { return s },
		func(s domain.Service) domain.Reader { return s },
	),
)
