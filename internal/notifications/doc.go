// Package notifications sends outbound messages through the configured
// delivery provider. When no provider endpoint is configured a noop
// channel is returned so workflows keep executing without deliveries.
package notifications
