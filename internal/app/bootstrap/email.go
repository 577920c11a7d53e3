package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/satish27072002/mh-skills-coach/internal/config"
	"github.com/satish27072002/mh-skills-coach/internal/notify"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// BuildEmailSender picks the outbound email transport from configuration.
// Misconfigured providers degrade to the stub sender with a warning instead
// of failing startup, so the chat surface stays available.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.EmailProvider)) {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but SENDGRID_API_KEY is not set, using stub sender")
			return notify.NewStubEmailSender(logger)
		}
		logger.Info("email sender configured", "provider", "sendgrid")
		return sender
	case "ses":
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender == nil {
			logger.Warn("ses selected but could not be configured, using stub sender")
			return notify.NewStubEmailSender(logger)
		}
		logger.Info("email sender configured", "provider", "ses")
		return sender
	default:
		logger.Info("email sender configured", "provider", "stub")
		return notify.NewStubEmailSender(logger)
	}
}
