package email

import (
	"github.com/smallbiznis/storeline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig returns the SMTP provider, or a no-op provider when no SMTP
// host is configured.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.Email.SMTPHost == "" {
		log.Named("providers.email").Info("smtp host not configured, email disabled")
		return &NoOpProvider{}
	}
	return NewSMTP(Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
	})
}
