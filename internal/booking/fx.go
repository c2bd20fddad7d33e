package booking

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/deskhive/internal/booking/repository"
	"github.com/smallbiznis/deskhive/internal/booking/service"
)

var Module = fx.Module("booking",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
