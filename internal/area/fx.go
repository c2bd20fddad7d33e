package area

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/deskhive/internal/area/domain"
	"github.com/smallbiznis/deskhive/internal/area/service"
	"github.com/smallbiznis/deskhive/pkg/repository"
)

var Module = fx.Module("area",
	fx.Provide(repository.ProvideStore[domain.Area]),
	fx.Provide(service.New),
)
