// Package fieldline triages emergency phone calls for field-service
// businesses and runs the resulting notification workflows. It detects
// the caller's language, scores urgency against industry keyword
// catalogs, decides escalation, and dispatches technician and customer
// notifications through resumable, persisted workflow jobs.
package fieldline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fieldline/internal/audit"
	"fieldline/internal/config"
	"fieldline/internal/delivery"
	"fieldline/internal/dispatch"
	"fieldline/internal/language"
	"fieldline/internal/logging"
	"fieldline/internal/notifications"
	"fieldline/internal/scheduler"
	"fieldline/internal/services"
	"fieldline/internal/store"
	"fieldline/internal/template"
	"fieldline/internal/triage"
	"fieldline/internal/urgency"
)

// Re-exported types forming the public API surface.
type (
	Config           = config.Config
	ConversationTurn = triage.ConversationTurn
	Assessment       = triage.Assessment
	ScoringContext   = urgency.Context
	UrgencyLevel     = urgency.Level
	LanguageCode     = language.Code
	Customer         = dispatch.Customer
	WorkflowType     = store.WorkflowType
	Job              = store.Job
	Template         = store.Template
	Organization     = store.Organization
	HealthSummary    = store.HealthSummary
	DeliveryReport   = delivery.Report
	DispatchResult   = dispatch.DispatchResult
	DeliveryOutcome  = dispatch.DeliveryOutcome
	Scheduler        = scheduler.Scheduler
)

// Workflow types accepted by Enqueue.
const (
	WorkflowEmergencyAlert          = store.WorkflowEmergencyAlert
	WorkflowAppointmentConfirmation = store.WorkflowAppointmentConfirmation
	WorkflowAppointmentReminder     = store.WorkflowAppointmentReminder
	WorkflowFollowUp                = store.WorkflowFollowUp
	WorkflowSurvey                  = store.WorkflowSurvey
)

// Sentinel errors surfaced by the module, checked with errors.Is.
var (
	ErrValidation     = services.ErrValidation
	ErrNotFound       = services.ErrNotFound
	ErrProvider       = services.ErrProvider
	ErrRetryExhausted = services.ErrRetryExhausted
)

// DefaultConfig returns the built-in configuration defaults.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads and validates a configuration file. An empty path
// searches the default locations.
func LoadConfig(path string) (*Config, error) {
	cfg, _, _, err := config.Load(path)
	return cfg, err
}

// System wires the full triage and dispatch pipeline for one
// organization: store, notification channel, templates, scheduler,
// audit sink, and the decision engine.
type System struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	sink       *audit.Sink
	templates  *template.Source
	dispatcher *dispatch.Dispatcher
	engine     *triage.Engine
	tracker    *delivery.Tracker
}

// Open builds a System from configuration. The data directory is
// created, the store opened and migrated, and unfinished jobs from a
// previous process rescheduled. logger may be nil.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*System, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}

	sink := audit.NewSink(logger, cfg.Audit.QueueSize)
	channel := notifications.NewChannel(cfg)
	renderer := template.NewRenderer(logger)
	source := template.NewSource(st, cfg.Organization.DefaultLanguage, renderer, logger)
	dispatcher := dispatch.New(cfg, st, channel, source, sink, logger)

	detector := language.NewDetector(language.Normalize(cfg.Organization.DefaultLanguage))
	engine := triage.NewEngine(cfg, detector, dispatcher, sink, logger)

	sys := &System{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		sink:       sink,
		templates:  source,
		dispatcher: dispatcher,
		engine:     engine,
		tracker:    delivery.NewTracker(st, logger),
	}

	if _, err := dispatcher.Recover(ctx); err != nil {
		sys.Close()
		return nil, err
	}
	return sys, nil
}

// Close stops the scheduler, drains the audit sink, and closes the
// store.
func (s *System) Close() error {
	s.dispatcher.Close()
	s.sink.Close()
	return s.store.Close()
}

// Assess scores one conversation turn without dispatching anything.
func (s *System) Assess(turn ConversationTurn, scoring ScoringContext) Assessment {
	return s.engine.Assess(turn, scoring)
}

// AssessAndNotify scores the turn and, when escalation is required,
// runs the emergency notification workflow. The boolean reports whether
// notifications went out; dispatch failures never fail the assessment.
func (s *System) AssessAndNotify(ctx context.Context, turn ConversationTurn, scoring ScoringContext) (Assessment, bool) {
	return s.engine.AssessAndNotify(ctx, turn, scoring)
}

// Dispatch runs the emergency alert workflow for an already-escalated
// assessment and reports each notification's outcome. Send failures are
// captured in the result, not raised; the error covers configuration
// problems only.
func (s *System) Dispatch(ctx context.Context, assessment Assessment) (DispatchResult, error) {
	return s.dispatcher.DispatchEmergency(ctx, assessment)
}

// Enqueue creates a workflow job for the customer. A positive delay
// arms a timer for its first execution; a zero delay leaves execution
// to the caller via Execute.
func (s *System) Enqueue(ctx context.Context, workflow WorkflowType, assessment *Assessment, customer Customer, delay time.Duration) (*Job, error) {
	return s.dispatcher.Enqueue(ctx, workflow, assessment, customer, delay)
}

// Execute runs a job now. Safe to call concurrently; duplicate
// executions no-op.
func (s *System) Execute(ctx context.Context, jobID string) error {
	return s.dispatcher.Execute(ctx, jobID)
}

// Retry resubmits a failed job, consuming one retry from its budget.
func (s *System) Retry(ctx context.Context, jobID string) error {
	return s.dispatcher.Retry(ctx, jobID)
}

// Cancel stops a job and skips its remaining steps.
func (s *System) Cancel(ctx context.Context, jobID string) error {
	return s.dispatcher.Cancel(ctx, jobID)
}

// Job fetches a job with its steps; nil when it does not exist.
func (s *System) Job(ctx context.Context, jobID string) (*Job, error) {
	return s.store.JobByID(ctx, jobID)
}

// SaveTemplate validates and stores a notification template version. A
// body with an unterminated placeholder is rejected with ErrValidation;
// declared-variable mismatches are logged as warnings only.
func (s *System) SaveTemplate(ctx context.Context, tmpl *Template) error {
	return s.templates.Save(ctx, tmpl)
}

// SaveOrganization stores the organization profile.
func (s *System) SaveOrganization(ctx context.Context, org *Organization) error {
	return s.store.SaveOrganization(ctx, org)
}

// ConfirmDelivery records a provider delivered callback for a message.
func (s *System) ConfirmDelivery(ctx context.Context, messageID string, at time.Time) error {
	return s.tracker.Confirm(ctx, messageID, at)
}

// RejectDelivery records a provider undeliverable callback.
func (s *System) RejectDelivery(ctx context.Context, messageID, reason string) error {
	return s.tracker.Reject(ctx, messageID, reason)
}

// DeliveryReport aggregates delivery outcomes over [from, to).
func (s *System) DeliveryReport(ctx context.Context, from, to time.Time) (DeliveryReport, error) {
	return s.tracker.Report(ctx, from, to)
}

// Health summarizes job counts per lifecycle state.
func (s *System) Health(ctx context.Context) (HealthSummary, error) {
	return s.store.Health(ctx)
}
