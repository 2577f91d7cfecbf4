package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/storepay/internal/adapter/catalog"
	"github.com/polkiloo/storepay/internal/adapter/mpesa"
	"github.com/polkiloo/storepay/internal/config"
	"github.com/polkiloo/storepay/internal/domain/repository"
	"github.com/polkiloo/storepay/internal/notification"
	pkgAuth "github.com/polkiloo/storepay/internal/pkg/auth"
)

// CallbackPath is where the gateway delivers payment webhooks.
const CallbackPath = "/api/payments/callback"

// Module provides core business use cases to the fx container.
var Module = fx.Options(
	fx.Provide(
		func() Clock { return SystemClock },
		func(n *notification.Notifier) Notifications { return n },
		func(c mpesa.Client) PaymentGateway { return c },
		func(c catalog.Catalog) ProductCatalog { return c },
		NewRecoveryPolicy,
		NewSettlement,
		NewRecoveryQueue,
		NewReconciler,
		newCheckoutUseCase,
		NewAdminUseCase,
		newAuthUseCase,
	),
)

// NewRecoveryPolicy reads queue limits from configuration.
func NewRecoveryPolicy(cfg *config.Config) RecoveryPolicy {
	return RecoveryPolicy{
		MaxAttempts: cfg.RecoveryMaxAttempts,
		BaseBackoff: cfg.RecoveryBaseBackoff,
		MaxBackoff:  cfg.RecoveryMaxBackoff,
		LeaseTTL:    cfg.RecoveryLeaseTTL,
		BatchSize:   cfg.RecoveryBatchSize,
	}
}

type checkoutParams struct {
	fx.In

	Config   *config.Config
	Orders   repository.OrderRepository
	Catalog  ProductCatalog
	Gateway  PaymentGateway
	Notifier Notifications
	Clock    Clock
	Logger   *slog.Logger
}

func newCheckoutUseCase(p checkoutParams) *CheckoutUseCase {
	return NewCheckoutUseCase(p.Orders, p.Catalog, p.Gateway, p.Notifier, p.Config.CallbackURL+CallbackPath, p.Clock, p.Logger)
}

func newAuthUseCase(cfg *config.Config, hasher pkgAuth.PasswordHasher, strategy pkgAuth.Strategy, logger *slog.Logger) *AuthUseCase {
	if cfg.AdminPasswordHash == "" {
		logger.Info("admin login disabled: no password hash configured")
	} else if _, err := pkgAuth.HashCost(cfg.AdminPasswordHash); err != nil {
		logger.Warn("admin password hash is not a bcrypt hash, admin login will fail", slog.Any("error", err))
	}
	return NewAuthUseCase(AdminAccount{Login: cfg.AdminLogin, PasswordHash: cfg.AdminPasswordHash}, hasher, strategy)
}
