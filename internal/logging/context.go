package logging

import (
	"context"
	"log/slog"

	"fieldline/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldConversationID is the standardized structured logging key for conversation identifiers.
	FieldConversationID = "conversation_id"
	// FieldJobID is the standardized structured logging key for dispatch job identifiers.
	FieldJobID = "job_id"
	// FieldStep is the standardized structured logging key for workflow step labels.
	FieldStep = "step"
	// FieldEventType tags lifecycle events (assessment, step_start, step_failure, ...).
	FieldEventType = "event_type"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if comp, ok := services.ComponentFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldComponent, comp))
	}
	if id, ok := services.ConversationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldConversationID, id))
	}
	if id, ok := services.JobIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobID, id))
	}
	if step, ok := services.StepFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStep, step))
	}
	return fields
}

// WithJob annotates ctx for all log records emitted while executing a job.
func WithJob(ctx context.Context, jobID string) context.Context {
	return services.WithJobID(ctx, jobID)
}

// WithConversation annotates ctx for all log records emitted while assessing
// a conversation turn.
func WithConversation(ctx context.Context, conversationID string) context.Context {
	return services.WithConversationID(ctx, conversationID)
}
