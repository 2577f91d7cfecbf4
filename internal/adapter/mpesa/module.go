package mpesa

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/config"
)

// Module exposes gateway client implementation to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	creds := Credentials{
		ConsumerKey:    p.Config.GatewayConsumerKey,
		ConsumerSecret: p.Config.GatewayConsumerSecret,
		Shortcode:      p.Config.GatewayShortcode,
		Passkey:        p.Config.GatewayPasskey,
	}
	return NewHTTPClient(p.Config.GatewayBaseURL, creds, p.Config.GatewayRateLimit, p.Logger)
}
