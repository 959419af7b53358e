package preference

import (
	"github.com/smallbiznis/opsdesk/internal/preference/service"
	"go.uber.org/fx"
)

var Module = fx.Module("preference.service",
	fx.Provide(service.NewService),
)
