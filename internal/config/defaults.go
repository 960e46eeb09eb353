package config

const (
	defaultDataDir               = "~/.local/share/fieldline"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultDefaultLanguage       = "en"
	defaultEscalationThreshold   = 0.7
	defaultChannelTimeoutSeconds = 30
	defaultWebhookTimeoutSeconds = 30
	defaultMaxRetries            = 3
	defaultFollowUpDelaySeconds  = 1800
	defaultAuditQueueSize        = 256
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Organization: Organization{
			DefaultLanguage: defaultDefaultLanguage,
		},
		Thresholds: Thresholds{
			Escalation: defaultEscalationThreshold,
		},
		Channel: Channel{
			RequestTimeoutSeconds: defaultChannelTimeoutSeconds,
		},
		Webhook: Webhook{
			TimeoutSeconds: defaultWebhookTimeoutSeconds,
		},
		Dispatch: Dispatch{
			MaxRetries:           defaultMaxRetries,
			FollowUpDelaySeconds: defaultFollowUpDelaySeconds,
		},
		Storage: Storage{
			DataDir: defaultDataDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Audit: Audit{
			QueueSize: defaultAuditQueueSize,
		},
	}
}
