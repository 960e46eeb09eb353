package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fieldline/internal/services"
)

const jobColumns = "id, org_id, workflow_type, status, scheduled_at, assessment_json, metadata_json, retry_count, max_retries, error_message, created_at, updated_at"

const stepColumns = "job_id, ord, step_type, status, config_json, result, error_message, updated_at"

// CreateJob inserts a job together with its ordered steps in one
// transaction. Steps are fixed at creation time.
func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.ID == "" {
		return services.Wrap(services.ErrValidation, "store", "create job", "job id is empty", nil)
	}
	if _, ok := workflowTypes[job.WorkflowType]; !ok {
		return services.Wrap(services.ErrValidation, "store", "create job", fmt.Sprintf("unknown workflow type %q", job.WorkflowType), nil)
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = JobPending
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create job tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO dispatch_jobs (`+jobColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		nullableString(job.OrgID),
		job.WorkflowType,
		job.Status,
		nullableTime(timePtr(job.ScheduledAt)),
		nullableString(job.AssessmentJSON),
		nullableString(job.MetadataJSON),
		job.RetryCount,
		job.MaxRetries,
		nullableString(job.ErrorMessage),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	for i := range job.Steps {
		step := &job.Steps[i]
		step.JobID = job.ID
		if step.Status == "" {
			step.Status = StepPending
		}
		step.UpdatedAt = now
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO dispatch_steps (`+stepColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			step.JobID,
			step.Order,
			step.Type,
			step.Status,
			nullableString(step.ConfigJSON),
			nullableString(step.Result),
			nullableString(step.ErrorMessage),
			now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", step.Order, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create job: %w", err)
	}
	return nil
}

// JobByID fetches a job and its steps. Returns nil when the job does not exist.
func (s *Store) JobByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM dispatch_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+stepColumns+` FROM dispatch_steps WHERE job_id = ? ORDER BY ord`, id)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		job.Steps = append(job.Steps, *step)
	}
	return job, rows.Err()
}

// UpdateJob persists job-level fields (status, retry count, error message).
func (s *Store) UpdateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE dispatch_jobs
         SET status = ?, scheduled_at = ?, retry_count = ?, error_message = ?, metadata_json = ?, updated_at = ?
         WHERE id = ?`,
		job.Status,
		nullableTime(timePtr(job.ScheduledAt)),
		job.RetryCount,
		nullableString(job.ErrorMessage),
		nullableString(job.MetadataJSON),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// UpdateStep persists one step's status, result, and error message.
func (s *Store) UpdateStep(ctx context.Context, step *Step) error {
	if step == nil {
		return errors.New("step is nil")
	}
	step.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE dispatch_steps
         SET status = ?, result = ?, error_message = ?, updated_at = ?
         WHERE job_id = ? AND ord = ?`,
		step.Status,
		nullableString(step.Result),
		nullableString(step.ErrorMessage),
		step.UpdatedAt.Format(time.RFC3339Nano),
		step.JobID,
		step.Order,
	)
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	return nil
}

// ActivateJob performs the conditional pending→active transition. It
// returns false when the job was not pending, which lets a second executor
// detect that the job is already running (or finished) and back off.
func (s *Store) ActivateJob(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE dispatch_jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		JobActive,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		JobPending,
	)
	if err != nil {
		return false, fmt.Errorf("activate job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CancelJob marks a non-terminal job cancelled and skips its pending
// steps. Completed steps are untouched.
func (s *Store) CancelJob(ctx context.Context, id string) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := tx.ExecContext(
		ctx,
		`UPDATE dispatch_jobs SET status = ?, updated_at = ? WHERE id = ? AND status IN (?, ?, ?)`,
		JobCancelled, now, id, JobPending, JobActive, JobFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, services.Wrap(services.ErrNotFound, "store", "cancel job", fmt.Sprintf("job %s not found or already terminal", id), nil)
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE dispatch_steps SET status = ?, updated_at = ? WHERE job_id = ? AND status = ?`,
		StepSkipped, now, id, StepPending,
	)
	if err != nil {
		return nil, fmt.Errorf("skip pending steps: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	return s.JobByID(ctx, id)
}

// ResetForRetry moves a failed job back to pending for resubmission:
// increments the retry counter, clears the error, and returns failed steps
// to pending so the executor can redo them.
func (s *Store) ResetForRetry(ctx context.Context, id string) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin retry tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := tx.ExecContext(
		ctx,
		`UPDATE dispatch_jobs
         SET status = ?, retry_count = retry_count + 1, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		JobPending, now, id, JobFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("reset job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, services.Wrap(services.ErrNotFound, "store", "retry job", fmt.Sprintf("job %s not found or not failed", id), nil)
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE dispatch_steps SET status = ?, error_message = NULL, updated_at = ? WHERE job_id = ? AND status = ?`,
		StepPending, now, id, StepFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("reset failed steps: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit retry: %w", err)
	}
	return s.JobByID(ctx, id)
}

// JobsByStatus returns jobs matching a status ordered by creation time.
func (s *Store) JobsByStatus(ctx context.Context, statuses ...JobStatus) ([]*Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM dispatch_jobs WHERE status IN (`+placeholders+`) ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs by status: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM dispatch_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[JobStatus]int)
	for rows.Next() {
		var status JobStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case JobPending:
			health.Pending += count
		case JobActive:
			health.Active += count
		case JobCompleted:
			health.Completed += count
		case JobCancelled:
			health.Cancelled += count
		case JobFailed:
			health.Failed += count
		}
	}
	return health, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		orgID        sql.NullString
		workflow     string
		statusStr    string
		scheduledRaw sql.NullString
		assessment   sql.NullString
		metadata     sql.NullString
		retryCount   int
		maxRetries   int
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&orgID,
		&workflow,
		&statusStr,
		&scheduledRaw,
		&assessment,
		&metadata,
		&retryCount,
		&maxRetries,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:             id,
		OrgID:          orgID.String,
		WorkflowType:   WorkflowType(workflow),
		Status:         JobStatus(statusStr),
		AssessmentJSON: assessment.String,
		MetadataJSON:   metadata.String,
		RetryCount:     retryCount,
		MaxRetries:     maxRetries,
		ErrorMessage:   errorMessage.String,
	}
	if scheduledRaw.Valid {
		if scheduled, err := parseTimeString(scheduledRaw.String); err == nil {
			job.ScheduledAt = scheduled
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func scanStep(scanner interface{ Scan(dest ...any) error }) (*Step, error) {
	var (
		jobID        string
		ord          int
		stepType     string
		statusStr    string
		configJSON   sql.NullString
		result       sql.NullString
		errorMessage sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&jobID,
		&ord,
		&stepType,
		&statusStr,
		&configJSON,
		&result,
		&errorMessage,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	step := &Step{
		JobID:        jobID,
		Order:        ord,
		Type:         StepType(stepType),
		Status:       StepStatus(statusStr),
		ConfigJSON:   configJSON.String,
		Result:       result.String,
		ErrorMessage: errorMessage.String,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		step.UpdatedAt = updated
	}
	return step, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
