package catalog

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/config"
)

// Module exposes the product catalog to fx graph.
var Module = fx.Provide(newCatalog)

type catalogParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newCatalog(p catalogParams) (Catalog, error) {
	if p.Config.CatalogPath == "" {
		p.Logger.Warn("no catalog configured, every checkout item will be rejected")
		return NewStaticCatalog()
	}
	c, err := NewFileCatalog(p.Config.CatalogPath)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("catalog loaded", slog.Int("products", c.Len()))
	return c, nil
}
