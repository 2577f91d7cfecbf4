package notification

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/adapter/notify"
	"github.com/polkiloo/storepay/internal/config"
)

// Module provides the Notifier.
var Module = fx.Provide(func(sender notify.Sender, cfg *config.Config, logger *slog.Logger) *Notifier {
	return NewNotifier(sender, cfg.OperatorEmail, logger)
})
