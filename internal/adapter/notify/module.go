package notify

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/config"
)

// Module provides the notification transport.
var Module = fx.Options(
	fx.Provide(newSender),
	fx.Invoke(registerLifecycle),
)

type senderParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newSender(p senderParams) Sender {
	if len(p.Config.KafkaBrokers) == 0 {
		p.Logger.Warn("no kafka brokers configured, notifications are only logged")
		return NewLogSender(p.Logger)
	}
	return NewKafkaSender(p.Config.KafkaBrokers, p.Config.NotificationTopic)
}

func registerLifecycle(lc fx.Lifecycle, sender Sender) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return sender.Close()
		},
	})
}
