package store

import (
	"strings"
	"time"
)

// WorkflowType identifies the step sequence a dispatch job executes.
type WorkflowType string

const (
	WorkflowEmergencyAlert          WorkflowType = "emergency_alert"
	WorkflowAppointmentConfirmation WorkflowType = "appointment_confirmation"
	WorkflowAppointmentReminder     WorkflowType = "appointment_reminder"
	WorkflowFollowUp                WorkflowType = "follow_up"
	WorkflowSurvey                  WorkflowType = "survey"
)

var workflowTypes = map[WorkflowType]struct{}{
	WorkflowEmergencyAlert:          {},
	WorkflowAppointmentConfirmation: {},
	WorkflowAppointmentReminder:     {},
	WorkflowFollowUp:                {},
	WorkflowSurvey:                  {},
}

// ParseWorkflowType converts a string into a known WorkflowType.
func ParseWorkflowType(value string) (WorkflowType, bool) {
	normalized := WorkflowType(strings.ToLower(strings.TrimSpace(value)))
	_, ok := workflowTypes[normalized]
	return normalized, ok
}

// JobStatus represents the lifecycle of a dispatch job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobActive    JobStatus = "active"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
	JobFailed    JobStatus = "failed"
)

var jobStatuses = []JobStatus{JobPending, JobActive, JobCompleted, JobCancelled, JobFailed}

// JobStatuses returns the ordered list of known job statuses.
func JobStatuses() []JobStatus {
	cp := make([]JobStatus, len(jobStatuses))
	copy(cp, jobStatuses)
	return cp
}

// IsTerminal reports whether a job status admits no further execution.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobCancelled:
		return true
	default:
		return false
	}
}

// StepType tags the variant of a workflow step.
type StepType string

const (
	StepSendNotification StepType = "send_notification"
	StepWait             StepType = "wait"
	StepCondition        StepType = "condition"
	StepWebhook          StepType = "webhook"
)

var stepTypes = map[StepType]struct{}{
	StepSendNotification: {},
	StepWait:             {},
	StepCondition:        {},
	StepWebhook:          {},
}

// KnownStepType reports whether t is a supported step variant.
func KnownStepType(t StepType) bool {
	_, ok := stepTypes[t]
	return ok
}

// StepStatus represents the lifecycle of one workflow step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepExecuting StepStatus = "executing"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// DeliveryStatus represents the provider-reported state of one message.
type DeliveryStatus string

const (
	DeliverySent        DeliveryStatus = "sent"
	DeliveryDelivered   DeliveryStatus = "delivered"
	DeliveryFailed      DeliveryStatus = "failed"
	DeliveryUndelivered DeliveryStatus = "undelivered"
)

// Job is a dispatch job persisted with its ordered steps. Steps are fixed
// at creation time and never added afterward.
type Job struct {
	ID             string
	OrgID          string
	WorkflowType   WorkflowType
	Status         JobStatus
	ScheduledAt    time.Time
	AssessmentJSON string
	MetadataJSON   string
	RetryCount     int
	MaxRetries     int
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Steps          []Step
}

// Step is one ordered entry in a job's workflow.
type Step struct {
	JobID        string
	Order        int
	Type         StepType
	Status       StepStatus
	ConfigJSON   string
	Result       string
	ErrorMessage string
	UpdatedAt    time.Time
}

// Template is one versioned notification template.
type Template struct {
	Key          string
	LanguageCode string
	Version      int
	Body         string
	Variables    []string
	IsActive     bool
	UpdatedAt    time.Time
}

// DeliveryRecord tracks one outbound message end to end.
type DeliveryRecord struct {
	MessageID    string
	JobID        string
	Recipient    string
	Channel      string
	TemplateKey  string
	LanguageUsed string
	Status       DeliveryStatus
	SentAt       time.Time
	DeliveredAt  *time.Time
	ErrorMessage string
}

// Organization is the persisted business profile jobs are keyed under.
type Organization struct {
	ID              string
	BusinessName    string
	IndustryCode    string
	ContactPhone    string
	TechnicianPhone string
	DefaultLanguage string
	UpdatedAt       time.Time
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total     int
	Pending   int
	Active    int
	Completed int
	Cancelled int
	Failed    int
}
