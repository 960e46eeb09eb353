// Package dispatch executes notification workflows. A workflow is a
// persisted job with an ordered, fixed step list; execution is resumable
// and idempotent, so a job may be re-entered after a crash or timer
// without double-sending completed steps.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldline/internal/audit"
	"fieldline/internal/config"
	"fieldline/internal/language"
	"fieldline/internal/logging"
	"fieldline/internal/notifications"
	"fieldline/internal/scheduler"
	"fieldline/internal/services"
	"fieldline/internal/store"
	"fieldline/internal/template"
	"fieldline/internal/triage"
)

const networkStepTimeout = 30 * time.Second

// Customer identifies the notification recipient on the customer side.
type Customer struct {
	Phone    string        `json:"phone"`
	Name     string        `json:"name,omitempty"`
	Language language.Code `json:"language,omitempty"`
}

type jobMetadata struct {
	Customer Customer `json:"customer"`
}

// Dispatcher creates and executes notification workflow jobs.
type Dispatcher struct {
	cfg       *config.Config
	store     *store.Store
	channel   notifications.Channel
	templates *template.Source
	sched     scheduler.Scheduler
	sink      *audit.Sink
	logger    *slog.Logger
	webhooks  *http.Client

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a dispatcher with its own timer scheduler. sink may be
// nil.
func New(cfg *config.Config, st *store.Store, channel notifications.Channel, templates *template.Source, sink *audit.Sink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	webhookTimeout := time.Duration(cfg.Webhook.TimeoutSeconds) * time.Second
	if webhookTimeout <= 0 {
		webhookTimeout = networkStepTimeout
	}
	d := &Dispatcher{
		cfg:       cfg,
		store:     st,
		channel:   channel,
		templates: templates,
		sink:      sink,
		logger:    logger.With(logging.String(logging.FieldComponent, "dispatch")),
		webhooks:  &http.Client{Timeout: webhookTimeout},
		locks:     make(map[string]*sync.Mutex),
	}
	d.sched = scheduler.New(d, logger)
	return d
}

// Close stops the internal scheduler. In-flight executions finish first.
func (d *Dispatcher) Close() {
	d.sched.Close()
}

// Dispatch implements triage.Notifier: it runs the emergency alert
// workflow and collapses the result to an error, so the caller's
// notificationsSent flag covers both notifications.
func (d *Dispatcher) Dispatch(ctx context.Context, assessment triage.Assessment) error {
	result, err := d.DispatchEmergency(ctx, assessment)
	if err != nil {
		return err
	}
	if msg := result.failure(); msg != "" {
		return services.Wrap(services.ErrProvider, "dispatch", "emergency", msg, nil)
	}
	return nil
}

// Enqueue creates a job for the workflow and schedules its first
// execution after delay. A zero delay leaves execution to the caller.
func (d *Dispatcher) Enqueue(ctx context.Context, workflow store.WorkflowType, assessment *triage.Assessment, customer Customer, delay time.Duration) (*store.Job, error) {
	if strings.TrimSpace(customer.Phone) == "" {
		return nil, services.Wrap(services.ErrValidation, "dispatch", "enqueue", "customer phone is empty", nil)
	}
	if customer.Language == "" {
		customer.Language = language.Normalize(d.cfg.Organization.DefaultLanguage)
	}

	steps, err := buildSteps(workflow, d.cfg)
	if err != nil {
		return nil, err
	}

	var assessmentJSON string
	if assessment != nil {
		raw, err := json.Marshal(assessment)
		if err != nil {
			return nil, fmt.Errorf("encode assessment: %w", err)
		}
		assessmentJSON = string(raw)
	}
	metadata, err := json.Marshal(jobMetadata{Customer: customer})
	if err != nil {
		return nil, fmt.Errorf("encode job metadata: %w", err)
	}

	job := &store.Job{
		ID:             uuid.NewString(),
		OrgID:          d.cfg.Organization.ID,
		WorkflowType:   workflow,
		MaxRetries:     d.cfg.Dispatch.MaxRetries,
		AssessmentJSON: assessmentJSON,
		MetadataJSON:   string(metadata),
		Steps:          steps,
	}
	if delay > 0 {
		job.ScheduledAt = time.Now().UTC().Add(delay)
	}
	if err := d.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	d.logger.Info("job enqueued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("workflow", string(workflow)))
	if delay > 0 {
		d.sched.Schedule(job.ID, delay)
	}
	return job, nil
}

// Execute runs a job until it completes, fails, or parks on a wait
// step. Execution is single-flight per job: a concurrent call for the
// same job returns without side effects. Completed steps are never
// redone on re-entry.
func (d *Dispatcher) Execute(ctx context.Context, jobID string) error {
	lock := d.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	job, err := d.store.JobByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return services.Wrap(services.ErrNotFound, "dispatch", "execute", fmt.Sprintf("job %s not found", jobID), nil)
	}
	if job.Status.IsTerminal() || job.Status == store.JobFailed {
		return nil
	}

	if job.Status == store.JobPending {
		won, err := d.store.ActivateJob(ctx, jobID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
	}
	// An already-active job here is a re-entry after an interrupted run;
	// the per-job lock guarantees no live executor holds it.

	job, err = d.store.JobByID(ctx, jobID)
	if err != nil {
		return err
	}

	meta, err := decodeMetadata(job.MetadataJSON)
	if err != nil {
		return d.failJob(ctx, job, err)
	}

	// Only send failures halt the loop; a failed webhook step is carried
	// here so the remaining steps still run before the job is failed.
	var stepFailure error

	for i := range job.Steps {
		step := &job.Steps[i]
		switch step.Status {
		case store.StepCompleted, store.StepSkipped:
			continue
		case store.StepFailed:
			// Reached only when a run was interrupted between marking the
			// step and settling the job: a failed job never enters the
			// loop. A failed send still halts; anything else is carried
			// so the remaining steps run before the job fails.
			prior := services.Wrap(services.ErrProvider, "dispatch", "execute", step.ErrorMessage, nil)
			if failedCfg, cfgErr := DecodeStepConfig(step.ConfigJSON); cfgErr == nil && failedCfg.Type == store.StepSendNotification {
				return d.failJob(ctx, job, prior)
			}
			stepFailure = prior
			continue
		}

		cfg, err := DecodeStepConfig(step.ConfigJSON)
		if err != nil {
			return d.failJob(ctx, job, err)
		}

		switch cfg.Type {
		case store.StepSendNotification:
			if err := d.runSend(ctx, job, step, cfg.Send, meta); err != nil {
				return d.failStep(ctx, job, step, err)
			}

		case store.StepWait:
			parked, err := d.runWait(ctx, job, step, cfg.Wait)
			if err != nil {
				return d.failJob(ctx, job, err)
			}
			if parked {
				return nil
			}

		case store.StepCondition:
			pass, err := d.evaluate(ctx, job, cfg.Condition.Predicate, meta)
			if err != nil {
				return d.failJob(ctx, job, err)
			}
			if !pass {
				if err := d.skipRemaining(ctx, job, i, string(cfg.Condition.Predicate)); err != nil {
					return err
				}
				if stepFailure != nil {
					return d.failJob(ctx, job, stepFailure)
				}
				return d.completeJob(ctx, job)
			}
			step.Status = store.StepCompleted
			step.Result = "true"
			if err := d.store.UpdateStep(ctx, step); err != nil {
				return err
			}

		case store.StepWebhook:
			// A webhook failure never halts the workflow; customer and
			// technician messaging matters more than the callback. The
			// job still ends failed, since an executed step failed.
			if err := d.runWebhook(ctx, job, step, cfg.Webhook); err != nil {
				step.Status = store.StepFailed
				step.ErrorMessage = err.Error()
				if updateErr := d.store.UpdateStep(ctx, step); updateErr != nil {
					return updateErr
				}
				d.logger.Error("webhook step failed",
					logging.String(logging.FieldJobID, job.ID),
					logging.Error(err))
				stepFailure = err
			}
		}
	}

	if stepFailure != nil {
		return d.failJob(ctx, job, stepFailure)
	}
	return d.completeJob(ctx, job)
}

// Retry resubmits a failed job. The retry budget is enforced before the
// reset: a job that already consumed MaxRetries attempts is rejected
// with ErrRetryExhausted.
func (d *Dispatcher) Retry(ctx context.Context, jobID string) error {
	lock := d.jobLock(jobID)
	lock.Lock()

	job, err := d.store.JobByID(ctx, jobID)
	if err != nil {
		lock.Unlock()
		return err
	}
	if job == nil {
		lock.Unlock()
		return services.Wrap(services.ErrNotFound, "dispatch", "retry", fmt.Sprintf("job %s not found", jobID), nil)
	}
	if job.Status != store.JobFailed {
		lock.Unlock()
		return services.Wrap(services.ErrValidation, "dispatch", "retry", fmt.Sprintf("job %s is %s, not failed", jobID, job.Status), nil)
	}
	if job.RetryCount >= job.MaxRetries {
		lock.Unlock()
		return services.Wrap(services.ErrRetryExhausted, "dispatch", "retry",
			fmt.Sprintf("job %s used %d of %d retries", jobID, job.RetryCount, job.MaxRetries), nil)
	}

	if _, err := d.store.ResetForRetry(ctx, jobID); err != nil {
		lock.Unlock()
		return err
	}
	lock.Unlock()

	return d.Execute(ctx, jobID)
}

// Cancel stops a job: pending timers are disarmed, the job is marked
// cancelled, and its pending steps are skipped. Completed steps stay
// untouched.
func (d *Dispatcher) Cancel(ctx context.Context, jobID string) error {
	lock := d.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	d.sched.Cancel(jobID)
	job, err := d.store.CancelJob(ctx, jobID)
	if err != nil {
		return err
	}

	d.logger.Info("job cancelled", logging.String(logging.FieldJobID, job.ID))
	d.audit("job_cancelled", job, "")
	return nil
}

// Recover rearms execution for jobs left pending by a previous process,
// honoring any future scheduled_at. Called once at startup.
func (d *Dispatcher) Recover(ctx context.Context) (int, error) {
	jobs, err := d.store.JobsByStatus(ctx, store.JobPending, store.JobActive)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	for _, job := range jobs {
		delay := time.Duration(0)
		if job.ScheduledAt.After(now) {
			delay = job.ScheduledAt.Sub(now)
		}
		d.sched.Schedule(job.ID, delay)
	}
	if len(jobs) > 0 {
		d.logger.Info("recovered unfinished jobs", logging.Int("count", len(jobs)))
	}
	return len(jobs), nil
}

func (d *Dispatcher) runSend(ctx context.Context, job *store.Job, step *store.Step, cfg *SendConfig, meta jobMetadata) error {
	recipient, lang := d.resolveRecipient(cfg.Recipient, meta)
	if strings.TrimSpace(recipient) == "" {
		return services.Wrap(services.ErrValidation, "dispatch", "send", fmt.Sprintf("no phone number for %s", cfg.Recipient), nil)
	}

	vars := d.templateVars(job, meta)
	body, languageUsed, err := d.templates.RenderFor(ctx, cfg.TemplateKey, string(lang), vars)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, networkStepTimeout)
	defer cancel()
	result, err := d.channel.Send(sendCtx, notifications.Message{
		Recipient:    recipient,
		Body:         body,
		LanguageUsed: languageUsed,
		TemplateKey:  cfg.TemplateKey,
		JobID:        job.ID,
		Alert:        cfg.Alert,
	})
	if err != nil {
		return err
	}

	record := &store.DeliveryRecord{
		MessageID:    result.MessageID,
		JobID:        job.ID,
		Recipient:    recipient,
		Channel:      "primary",
		TemplateKey:  cfg.TemplateKey,
		LanguageUsed: languageUsed,
		Status:       store.DeliverySent,
		SentAt:       result.SentAt,
	}
	if err := d.store.RecordDelivery(ctx, record); err != nil {
		return err
	}

	step.Status = store.StepCompleted
	step.Result = result.MessageID
	if err := d.store.UpdateStep(ctx, step); err != nil {
		return err
	}

	d.logger.Info("notification sent",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("recipient_role", string(cfg.Recipient)),
		logging.String("template", cfg.TemplateKey),
		logging.String("language", languageUsed))
	d.audit("notification_sent", job, cfg.TemplateKey)
	return nil
}

// runWait parks the job: the step completes, the job returns to pending
// with a future scheduled_at, and a timer rearms execution. A zero delay
// completes the step inline.
func (d *Dispatcher) runWait(ctx context.Context, job *store.Job, step *store.Step, cfg *WaitConfig) (bool, error) {
	delay := time.Duration(cfg.DelaySeconds) * time.Second

	step.Status = store.StepCompleted
	step.Result = fmt.Sprintf("waited %ds", cfg.DelaySeconds)
	if err := d.store.UpdateStep(ctx, step); err != nil {
		return false, err
	}
	if delay <= 0 {
		return false, nil
	}

	job.Status = store.JobPending
	job.ScheduledAt = time.Now().UTC().Add(delay)
	if err := d.store.UpdateJob(ctx, job); err != nil {
		return false, err
	}

	d.sched.Schedule(job.ID, delay)
	d.logger.Info("job parked on wait step",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("resume_at", job.ScheduledAt.Format(time.RFC3339)))
	return true, nil
}

func (d *Dispatcher) runWebhook(ctx context.Context, job *store.Job, step *store.Step, cfg *WebhookConfig) error {
	url := strings.TrimSpace(d.cfg.Webhook.URL)
	if url == "" {
		step.Status = store.StepSkipped
		step.Result = "no webhook configured"
		return d.store.UpdateStep(ctx, step)
	}

	payload, err := json.Marshal(map[string]any{
		"event":      cfg.Event,
		"job_id":     job.ID,
		"workflow":   job.WorkflowType,
		"assessment": json.RawMessage(emptyToNull(job.AssessmentJSON)),
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	webhookCtx, cancel := context.WithTimeout(ctx, networkStepTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(webhookCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.webhooks.Do(req)
	if err != nil {
		return services.WrapNetwork("dispatch", "webhook", "webhook request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return services.Wrap(services.ErrProvider, "dispatch", "webhook", fmt.Sprintf("webhook returned %d", resp.StatusCode), nil)
	}

	step.Status = store.StepCompleted
	step.Result = cfg.Event
	return d.store.UpdateStep(ctx, step)
}

func (d *Dispatcher) evaluate(ctx context.Context, job *store.Job, predicate Predicate, meta jobMetadata) (bool, error) {
	switch predicate {
	case PredicateBusinessHours:
		hour := time.Now().Hour()
		return hour >= 8 && hour < 18, nil

	case PredicateCustomerUndelivered:
		records, err := d.store.DeliveriesForJob(ctx, job.ID)
		if err != nil {
			return false, err
		}
		for _, rec := range records {
			if rec.Recipient != meta.Customer.Phone {
				continue
			}
			if rec.Status == store.DeliveryFailed || rec.Status == store.DeliveryUndelivered {
				return true, nil
			}
		}
		return false, nil

	case PredicateEscalated:
		if job.AssessmentJSON == "" {
			return false, nil
		}
		var assessment triage.Assessment
		if err := json.Unmarshal([]byte(job.AssessmentJSON), &assessment); err != nil {
			return false, services.Wrap(services.ErrValidation, "dispatch", "evaluate", "malformed assessment", err)
		}
		return assessment.EscalationRequired, nil

	default:
		return false, services.Wrap(services.ErrValidation, "dispatch", "evaluate", fmt.Sprintf("unknown predicate %q", predicate), nil)
	}
}

func (d *Dispatcher) skipRemaining(ctx context.Context, job *store.Job, from int, reason string) error {
	for i := from; i < len(job.Steps); i++ {
		step := &job.Steps[i]
		if step.Status != store.StepPending && step.Status != store.StepExecuting {
			continue
		}
		step.Status = store.StepSkipped
		if i == from {
			step.Result = reason + "=false"
		}
		if err := d.store.UpdateStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) completeJob(ctx context.Context, job *store.Job) error {
	job.Status = store.JobCompleted
	if err := d.store.UpdateJob(ctx, job); err != nil {
		return err
	}
	d.logger.Info("job completed", logging.String(logging.FieldJobID, job.ID))
	d.audit("job_completed", job, "")
	return nil
}

// failStep marks the step and job failed. The error is returned to the
// caller so scheduled executions surface it in the log.
func (d *Dispatcher) failStep(ctx context.Context, job *store.Job, step *store.Step, cause error) error {
	step.Status = store.StepFailed
	step.ErrorMessage = cause.Error()
	if err := d.store.UpdateStep(ctx, step); err != nil {
		return err
	}
	return d.failJob(ctx, job, cause)
}

func (d *Dispatcher) failJob(ctx context.Context, job *store.Job, cause error) error {
	job.Status = store.JobFailed
	job.ErrorMessage = cause.Error()
	if err := d.store.UpdateJob(ctx, job); err != nil {
		return err
	}
	d.logger.Error("job failed",
		logging.String(logging.FieldJobID, job.ID),
		logging.Error(cause))
	d.audit("job_failed", job, cause.Error())
	return cause
}

func (d *Dispatcher) resolveRecipient(role Recipient, meta jobMetadata) (string, language.Code) {
	switch role {
	case RecipientTechnician:
		return d.cfg.Organization.TechnicianPhone, language.Normalize(d.cfg.Organization.DefaultLanguage)
	default:
		return meta.Customer.Phone, meta.Customer.Language
	}
}

func (d *Dispatcher) templateVars(job *store.Job, meta jobMetadata) map[string]string {
	vars := map[string]string{
		"name":          meta.Customer.Name,
		"business_name": d.cfg.Organization.BusinessName,
		"contact_phone": d.cfg.Organization.ContactPhone,
		"caller_phone":  meta.Customer.Phone,
	}
	if job.AssessmentJSON != "" {
		var assessment triage.Assessment
		if err := json.Unmarshal([]byte(job.AssessmentJSON), &assessment); err == nil {
			vars["caller_name"] = assessment.CallerName
			vars["urgency_level"] = string(assessment.Level)
			vars["urgency_score"] = fmt.Sprintf("%.2f", assessment.UrgencyScore)
			vars["matched_keywords"] = strings.Join(assessment.MatchedKeywords, ", ")
		}
	}
	return vars
}

func (d *Dispatcher) audit(event string, job *store.Job, detail string) {
	if d.sink == nil {
		return
	}
	d.sink.Record(audit.Record{
		Event:  event,
		JobID:  job.ID,
		Detail: detail,
	})
}

func (d *Dispatcher) jobLock(jobID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.locks[jobID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[jobID] = lock
	}
	return lock
}

func decodeMetadata(raw string) (jobMetadata, error) {
	if raw == "" {
		return jobMetadata{}, nil
	}
	var meta jobMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return jobMetadata{}, services.Wrap(services.ErrValidation, "dispatch", "decode metadata", "malformed job metadata", err)
	}
	return meta, nil
}

func emptyToNull(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "null"
	}
	return raw
}
