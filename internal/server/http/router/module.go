package router

import (
	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/app"
	"github.com/polkiloo/storepay/internal/server/http/handlers"
)

// Module registers HTTP router construction for fx runtime.
var Module = fx.Options(
	fx.Provide(func(f *app.PaymentsFacade) handlers.PaymentsFacade { return f }),
	fx.Provide(Setup),
)
