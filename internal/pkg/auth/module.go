package auth

import (
	"time"

	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/config"
)

const adminTokenTTL = 12 * time.Hour

// Module provides authentication primitives via fx.
var Module = fx.Options(
	fx.Provide(newPasswordHasher),
	fx.Provide(newTokenStrategy),
)

func newPasswordHasher() PasswordHasher {
	return NewBcryptHasher(0)
}

type strategyParams struct {
	fx.In

	Config *config.Config
}

func newTokenStrategy(p strategyParams) Strategy {
	return NewHMACStrategy(p.Config.AuthSecret, Options{TTL: adminTokenTTL})
}
