package invoice

import (
	"github.com/smallbiznis/opsdesk/internal/config"
	"github.com/smallbiznis/opsdesk/internal/invoice/render"
	"github.com/smallbiznis/opsdesk/internal/invoice/repository"
	"github.com/smallbiznis/opsdesk/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(render.NewRenderer),
	fx.Provide(render.NewPDFRenderer),
	fx.Provide(func(cfg config.Config) render.TemplateView {
		return render.TemplateFromBranding(cfg.Branding)
	}),
	fx.Provide(service.NewService),
)
