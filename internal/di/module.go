package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/adapter/catalog"
	"github.com/polkiloo/storepay/internal/adapter/mpesa"
	"github.com/polkiloo/storepay/internal/adapter/notify"
	"github.com/polkiloo/storepay/internal/app"
	"github.com/polkiloo/storepay/internal/config"
	"github.com/polkiloo/storepay/internal/logger"
	"github.com/polkiloo/storepay/internal/notification"
	"github.com/polkiloo/storepay/internal/pkg/auth"
	"github.com/polkiloo/storepay/internal/server/http/router"
	"github.com/polkiloo/storepay/internal/storage"
	"github.com/polkiloo/storepay/internal/usecase"
)

// Core wires everything except the HTTP server and the background worker.
// One-shot commands build on it.
func Core(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		storage.Module,
		mpesa.Module,
		notify.Module,
		catalog.Module,
		notification.Module,
		usecase.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

// Module wires the full serving application.
func Module(opts ...fx.Option) fx.Option {
	return Core(append([]fx.Option{router.Module, app.Module}, opts...)...)
}
