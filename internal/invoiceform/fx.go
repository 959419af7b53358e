package invoiceform

import (
	"github.com/smallbiznis/opsdesk/internal/invoiceform/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoiceform",
	fx.Provide(service.NewFactory),
)
