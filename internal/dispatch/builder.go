package dispatch

import (
	"fmt"

	"fieldline/internal/config"
	"fieldline/internal/services"
	"fieldline/internal/store"
)

// Template keys referenced by the built-in workflows. Bodies live in the
// template store per organization and language.
const (
	TemplateEmergencyTechnician     = "emergency_technician"
	TemplateEmergencyCustomer       = "emergency_customer"
	TemplateEmergencyFollowUp       = "emergency_follow_up"
	TemplateAppointmentConfirmation = "appointment_confirmation"
	TemplateAppointmentReminder     = "appointment_reminder"
	TemplateReminderUnanswered      = "reminder_unanswered"
	TemplateFollowUp                = "follow_up"
	TemplateSurvey                  = "survey"
)

// buildSteps returns the ordered step list for a workflow type. The
// technician alert always precedes customer messaging in the emergency
// workflow so a customer-side failure can never block the technician.
func buildSteps(workflow store.WorkflowType, cfg *config.Config) ([]store.Step, error) {
	var configs []StepConfig

	switch workflow {
	case store.WorkflowEmergencyAlert:
		configs = []StepConfig{
			sendStep(RecipientTechnician, TemplateEmergencyTechnician, true),
			sendStep(RecipientCustomer, TemplateEmergencyCustomer, false),
			{Type: store.StepWebhook, Webhook: &WebhookConfig{Event: "emergency.dispatched"}},
			{Type: store.StepWait, Wait: &WaitConfig{DelaySeconds: cfg.Dispatch.FollowUpDelaySeconds}},
			sendStep(RecipientCustomer, TemplateEmergencyFollowUp, false),
		}
	case store.WorkflowAppointmentConfirmation:
		configs = []StepConfig{
			sendStep(RecipientCustomer, TemplateAppointmentConfirmation, false),
		}
	case store.WorkflowAppointmentReminder:
		configs = []StepConfig{
			sendStep(RecipientCustomer, TemplateAppointmentReminder, false),
			{Type: store.StepCondition, Condition: &ConditionConfig{Predicate: PredicateCustomerUndelivered}},
			sendStep(RecipientTechnician, TemplateReminderUnanswered, false),
		}
	case store.WorkflowFollowUp:
		configs = []StepConfig{
			{Type: store.StepWait, Wait: &WaitConfig{DelaySeconds: cfg.Dispatch.FollowUpDelaySeconds}},
			sendStep(RecipientCustomer, TemplateFollowUp, false),
		}
	case store.WorkflowSurvey:
		configs = []StepConfig{
			{Type: store.StepWait, Wait: &WaitConfig{DelaySeconds: cfg.Dispatch.FollowUpDelaySeconds}},
			{Type: store.StepCondition, Condition: &ConditionConfig{Predicate: PredicateBusinessHours}},
			sendStep(RecipientCustomer, TemplateSurvey, false),
		}
	default:
		return nil, services.Wrap(services.ErrValidation, "dispatch", "build steps", fmt.Sprintf("unknown workflow type %q", workflow), nil)
	}

	steps := make([]store.Step, len(configs))
	for i, sc := range configs {
		encoded, err := sc.Encode()
		if err != nil {
			return nil, err
		}
		steps[i] = store.Step{
			Order:      i,
			Type:       sc.Type,
			ConfigJSON: encoded,
		}
	}
	return steps, nil
}

func sendStep(recipient Recipient, templateKey string, alert bool) StepConfig {
	return StepConfig{
		Type: store.StepSendNotification,
		Send: &SendConfig{Recipient: recipient, TemplateKey: templateKey, Alert: alert},
	}
}
