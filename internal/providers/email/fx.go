package email

import (
	"strings"

	"github.com/smallbiznis/royalty/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, policy *config.EarningsConfigHolder, log *zap.Logger) (Provider, error) {
	if strings.TrimSpace(cfg.Email.SMTPHost) == "" {
		log.Named("email").Info("smtp not configured, email disabled")
		return &NoOpProvider{}, nil
	}
	return NewSMTP(Config{
		Host:           cfg.Email.SMTPHost,
		Port:           cfg.Email.SMTPPort,
		Username:       cfg.Email.SMTPUsername,
		Password:       cfg.Email.SMTPPassword,
		From:           cfg.Email.SMTPFrom,
		CurrencyPrefix: func() string { return policy.Get().CurrencyPrefix },
	})
}
