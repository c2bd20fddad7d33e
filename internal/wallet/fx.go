package wallet

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/deskhive/internal/wallet/domain"
	"github.com/smallbiznis/deskhive/internal/wallet/service"
	"github.com/smallbiznis/deskhive/pkg/repository"
)

var Module = fx.Module("wallet",
	fx.Provide(repository.ProvideStore[domain.Wallet]),
	fx.Provide(repository.ProvideStore[domain.Transaction]),
	fx.Provide(service.New),
)
