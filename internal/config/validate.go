package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownIndustries = map[string]struct{}{
	"hvac":       {},
	"plumbing":   {},
	"electrical": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOrganization(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateChannel(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Audit.QueueSize <= 0 {
		return errors.New("audit.queue_size must be positive")
	}
	return nil
}

func (c *Config) validateOrganization() error {
	if strings.TrimSpace(c.Organization.DefaultLanguage) == "" {
		return errors.New("organization.default_language must be set")
	}
	if code := c.Organization.IndustryCode; code != "" {
		if _, ok := knownIndustries[code]; !ok {
			// Unknown industries are allowed; they simply apply no modifier.
			// Reject only values that cannot be a code at all.
			if strings.ContainsAny(code, " \t") {
				return fmt.Errorf("organization.industry_code %q is not a valid code", code)
			}
		}
	}
	return nil
}

func (c *Config) validateThresholds() error {
	if c.Thresholds.Escalation < 0 || c.Thresholds.Escalation > 1 {
		return errors.New("thresholds.escalation must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateChannel() error {
	if c.Channel.RequestTimeoutSeconds <= 0 {
		return errors.New("channel.request_timeout_seconds must be positive")
	}
	if c.Webhook.TimeoutSeconds <= 0 {
		return errors.New("webhook.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if c.Dispatch.MaxRetries < 0 {
		return errors.New("dispatch.max_retries must not be negative")
	}
	if c.Dispatch.FollowUpDelaySeconds < 0 {
		return errors.New("dispatch.follow_up_delay_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}
