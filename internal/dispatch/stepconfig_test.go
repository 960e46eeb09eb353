package dispatch_test

import (
	"errors"
	"testing"

	"fieldline/internal/dispatch"
	"fieldline/internal/services"
	"fieldline/internal/store"
)

func TestStepConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     dispatch.StepConfig
		wantErr bool
	}{
		{
			name: "valid send",
			cfg: dispatch.StepConfig{
				Type: store.StepSendNotification,
				Send: &dispatch.SendConfig{Recipient: dispatch.RecipientCustomer, TemplateKey: "follow_up"},
			},
		},
		{
			name: "send without template",
			cfg: dispatch.StepConfig{
				Type: store.StepSendNotification,
				Send: &dispatch.SendConfig{Recipient: dispatch.RecipientCustomer},
			},
			wantErr: true,
		},
		{
			name: "send to unknown recipient",
			cfg: dispatch.StepConfig{
				Type: store.StepSendNotification,
				Send: &dispatch.SendConfig{Recipient: "manager", TemplateKey: "follow_up"},
			},
			wantErr: true,
		},
		{
			name: "valid wait",
			cfg: dispatch.StepConfig{
				Type: store.StepWait,
				Wait: &dispatch.WaitConfig{DelaySeconds: 60},
			},
		},
		{
			name: "negative wait",
			cfg: dispatch.StepConfig{
				Type: store.StepWait,
				Wait: &dispatch.WaitConfig{DelaySeconds: -1},
			},
			wantErr: true,
		},
		{
			name: "valid condition",
			cfg: dispatch.StepConfig{
				Type:      store.StepCondition,
				Condition: &dispatch.ConditionConfig{Predicate: dispatch.PredicateBusinessHours},
			},
		},
		{
			name: "unknown predicate",
			cfg: dispatch.StepConfig{
				Type:      store.StepCondition,
				Condition: &dispatch.ConditionConfig{Predicate: "moon_phase"},
			},
			wantErr: true,
		},
		{
			name: "valid webhook",
			cfg: dispatch.StepConfig{
				Type:    store.StepWebhook,
				Webhook: &dispatch.WebhookConfig{Event: "emergency.dispatched"},
			},
		},
		{
			name:    "missing branch",
			cfg:     dispatch.StepConfig{Type: store.StepWait},
			wantErr: true,
		},
		{
			name:    "unknown type",
			cfg:     dispatch.StepConfig{Type: "smoke_signal"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("err = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestStepConfigEncodeDecode(t *testing.T) {
	original := dispatch.StepConfig{
		Type: store.StepSendNotification,
		Send: &dispatch.SendConfig{Recipient: dispatch.RecipientTechnician, TemplateKey: "emergency_technician", Alert: true},
	}
	raw, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := dispatch.DecodeStepConfig(raw)
	if err != nil {
		t.Fatalf("DecodeStepConfig: %v", err)
	}
	if decoded.Send == nil || decoded.Send.Recipient != dispatch.RecipientTechnician || !decoded.Send.Alert {
		t.Fatalf("decoded = %+v", decoded)
	}

	if _, err := dispatch.DecodeStepConfig("{not json"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("malformed decode: err = %v, want ErrValidation", err)
	}
}
