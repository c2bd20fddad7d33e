package space

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/deskhive/internal/space/domain"
	"github.com/smallbiznis/deskhive/internal/space/service"
	"github.com/smallbiznis/deskhive/pkg/repository"
)

var Module = fx.Module("space",
	fx.Provide(repository.ProvideStore[domain.Space]),
	fx.Provide(service.New),
)
