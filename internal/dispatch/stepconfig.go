package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"fieldline/internal/services"
	"fieldline/internal/store"
)

// Recipient selects which party a send step addresses.
type Recipient string

const (
	RecipientTechnician Recipient = "technician"
	RecipientCustomer   Recipient = "customer"
)

// Predicate names a condition evaluated at execution time.
type Predicate string

const (
	// PredicateBusinessHours is true between 08:00 and 18:00 local time.
	PredicateBusinessHours Predicate = "business_hours"
	// PredicateCustomerUndelivered is true when a customer message in this
	// job failed or was reported undelivered.
	PredicateCustomerUndelivered Predicate = "customer_undelivered"
	// PredicateEscalated is true when the job's assessment required
	// escalation.
	PredicateEscalated Predicate = "escalated"
)

var knownPredicates = map[Predicate]struct{}{
	PredicateBusinessHours:       {},
	PredicateCustomerUndelivered: {},
	PredicateEscalated:           {},
}

// SendConfig parameterizes a send_notification step.
type SendConfig struct {
	Recipient   Recipient `json:"recipient"`
	TemplateKey string    `json:"template_key"`
	Alert       bool      `json:"alert,omitempty"`
}

// WaitConfig parameterizes a wait step.
type WaitConfig struct {
	DelaySeconds int `json:"delay_seconds"`
}

// ConditionConfig parameterizes a condition step. A false predicate
// skips the rest of the workflow.
type ConditionConfig struct {
	Predicate Predicate `json:"predicate"`
}

// WebhookConfig parameterizes a webhook step. The target URL comes from
// configuration; the event tag distinguishes callbacks.
type WebhookConfig struct {
	Event string `json:"event"`
}

// StepConfig is the tagged union persisted per step. Exactly one branch
// matching Type must be populated.
type StepConfig struct {
	Type      store.StepType   `json:"type"`
	Send      *SendConfig      `json:"send,omitempty"`
	Wait      *WaitConfig      `json:"wait,omitempty"`
	Condition *ConditionConfig `json:"condition,omitempty"`
	Webhook   *WebhookConfig   `json:"webhook,omitempty"`
}

// Validate rejects malformed step configs at build time so execution
// never meets an undecodable step.
func (c StepConfig) Validate() error {
	wrap := func(message string) error {
		return services.Wrap(services.ErrValidation, "dispatch", "validate step", message, nil)
	}
	switch c.Type {
	case store.StepSendNotification:
		if c.Send == nil {
			return wrap("send step has no send config")
		}
		if c.Send.Recipient != RecipientTechnician && c.Send.Recipient != RecipientCustomer {
			return wrap(fmt.Sprintf("unknown recipient %q", c.Send.Recipient))
		}
		if strings.TrimSpace(c.Send.TemplateKey) == "" {
			return wrap("send step has no template key")
		}
	case store.StepWait:
		if c.Wait == nil {
			return wrap("wait step has no wait config")
		}
		if c.Wait.DelaySeconds < 0 {
			return wrap("wait delay is negative")
		}
	case store.StepCondition:
		if c.Condition == nil {
			return wrap("condition step has no condition config")
		}
		if _, ok := knownPredicates[c.Condition.Predicate]; !ok {
			return wrap(fmt.Sprintf("unknown predicate %q", c.Condition.Predicate))
		}
	case store.StepWebhook:
		if c.Webhook == nil {
			return wrap("webhook step has no webhook config")
		}
		if strings.TrimSpace(c.Webhook.Event) == "" {
			return wrap("webhook step has no event")
		}
	default:
		return wrap(fmt.Sprintf("unknown step type %q", c.Type))
	}
	return nil
}

// Encode validates and serializes a step config for persistence.
func (c StepConfig) Encode() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode step config: %w", err)
	}
	return string(raw), nil
}

// DecodeStepConfig parses a persisted step config and re-validates it.
func DecodeStepConfig(raw string) (StepConfig, error) {
	var cfg StepConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return StepConfig{}, services.Wrap(services.ErrValidation, "dispatch", "decode step", "malformed step config", err)
	}
	if err := cfg.Validate(); err != nil {
		return StepConfig{}, err
	}
	return cfg, nil
}
