package dispatch

import (
	"context"
	"errors"

	"fieldline/internal/services"
	"fieldline/internal/store"
	"fieldline/internal/triage"
)

// DeliveryOutcome reports a single notification attempt inside an
// emergency workflow.
type DeliveryOutcome struct {
	Sent      bool   `json:"sent"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DispatchResult summarizes an emergency dispatch: the two immediate
// notifications plus whether the delayed follow-up was armed.
type DispatchResult struct {
	JobID                  string          `json:"jobId"`
	TechnicianNotification DeliveryOutcome `json:"technicianNotification"`
	CustomerNotification   DeliveryOutcome `json:"customerNotification"`
	FollowUpScheduled      bool            `json:"followUpScheduled"`
}

// failure returns the first recorded notification error, or "".
func (r DispatchResult) failure() string {
	if r.TechnicianNotification.Error != "" {
		return r.TechnicianNotification.Error
	}
	return r.CustomerNotification.Error
}

// DispatchEmergency creates and runs the emergency alert workflow for
// an escalated assessment. Send failures do not raise: they land in the
// result's per-notification outcomes, and the failed job stays queryable
// under the returned JobID for Retry. An error is returned only for
// problems no retry can fix, such as a template missing in every
// language or an invalid job definition.
func (d *Dispatcher) DispatchEmergency(ctx context.Context, assessment triage.Assessment) (DispatchResult, error) {
	var result DispatchResult

	customer := Customer{
		Phone:    assessment.CallerID,
		Name:     assessment.CallerName,
		Language: assessment.DetectedLanguage,
	}
	if customer.Phone == "" {
		customer.Phone = d.cfg.Organization.ContactPhone
	}

	job, err := d.Enqueue(ctx, store.WorkflowEmergencyAlert, &assessment, customer, 0)
	if err != nil {
		return result, err
	}
	result.JobID = job.ID

	execErr := d.Execute(ctx, job.ID)

	final, err := d.store.JobByID(ctx, job.ID)
	if err != nil {
		return result, err
	}
	if final != nil {
		result = emergencyResult(final)
	}

	if execErr != nil && !errors.Is(execErr, services.ErrProvider) && !errors.Is(execErr, services.ErrTimeout) {
		return result, execErr
	}
	return result, nil
}

// emergencyResult reads notification outcomes back off the executed
// steps. The follow-up counts as scheduled once the wait step has
// completed, whether the job parked on a timer or ran the delayed send
// inline.
func emergencyResult(job *store.Job) DispatchResult {
	result := DispatchResult{JobID: job.ID}
	for i := range job.Steps {
		step := &job.Steps[i]
		cfg, err := DecodeStepConfig(step.ConfigJSON)
		if err != nil {
			continue
		}
		switch cfg.Type {
		case store.StepSendNotification:
			switch cfg.Send.TemplateKey {
			case TemplateEmergencyTechnician:
				result.TechnicianNotification = stepOutcome(step)
			case TemplateEmergencyCustomer:
				result.CustomerNotification = stepOutcome(step)
			}
		case store.StepWait:
			result.FollowUpScheduled = step.Status == store.StepCompleted
		}
	}
	return result
}

func stepOutcome(step *store.Step) DeliveryOutcome {
	switch step.Status {
	case store.StepCompleted:
		return DeliveryOutcome{Sent: true, MessageID: step.Result}
	case store.StepFailed:
		return DeliveryOutcome{Error: step.ErrorMessage}
	default:
		return DeliveryOutcome{}
	}
}
