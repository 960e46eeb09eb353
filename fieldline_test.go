package fieldline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldline"
	"fieldline/internal/testsupport"
)

func openSystem(t *testing.T) *fieldline.System {
	t.Helper()
	cfg := testsupport.NewConfig(t, func(c *fieldline.Config) {
		c.Dispatch.FollowUpDelaySeconds = 0
	})
	sys, err := fieldline.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := sys.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return sys
}

func seedEmergencyTemplates(t *testing.T, sys *fieldline.System) {
	t.Helper()
	bodies := map[string]string{
		"emergency_technician": "Emergency call from {caller_phone}, score {urgency_score}.",
		"emergency_customer":   "{name}, a technician from {business_name} is on the way.",
		"emergency_follow_up":  "{name}, is your issue resolved?",
	}
	for key, body := range bodies {
		err := sys.SaveTemplate(context.Background(), &fieldline.Template{
			Key:          key,
			LanguageCode: "en",
			Version:      1,
			Body:         body,
			IsActive:     true,
		})
		if err != nil {
			t.Fatalf("SaveTemplate %s: %v", key, err)
		}
	}
}

func TestAssessAndNotifyEndToEnd(t *testing.T) {
	sys := openSystem(t)
	seedEmergencyTemplates(t, sys)
	ctx := context.Background()

	at := time.Date(2026, time.January, 12, 2, 0, 0, 0, time.UTC)
	temp := -5.0

	assessment, sent := sys.AssessAndNotify(ctx, fieldline.ConversationTurn{
		Text:       "This is an emergency, no heat!",
		Timestamp:  at,
		CallerID:   "+15550199",
		CallerName: "Maria",
	}, fieldline.ScoringContext{AmbientTempC: &temp, Now: at})

	if !assessment.EscalationRequired {
		t.Fatal("expected escalation")
	}
	if !sent {
		t.Fatal("expected notifications to be dispatched")
	}

	health, err := sys.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Completed != 1 {
		t.Errorf("completed jobs = %d, want 1", health.Completed)
	}

	report, err := sys.DeliveryReport(ctx, at.Add(-time.Hour), time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeliveryReport: %v", err)
	}
	if report.Total != 3 {
		t.Errorf("deliveries = %d, want technician + customer + follow-up", report.Total)
	}
}

func TestDispatchReturnsOutcomes(t *testing.T) {
	sys := openSystem(t)
	seedEmergencyTemplates(t, sys)
	ctx := context.Background()

	at := time.Date(2026, time.January, 12, 2, 0, 0, 0, time.UTC)
	temp := -5.0
	assessment := sys.Assess(fieldline.ConversationTurn{
		Text:       "This is an emergency, no heat!",
		Timestamp:  at,
		CallerID:   "+15550199",
		CallerName: "Maria",
	}, fieldline.ScoringContext{AmbientTempC: &temp, Now: at})

	result, err := sys.Dispatch(ctx, assessment)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !result.TechnicianNotification.Sent {
		t.Errorf("technician outcome = %+v, want sent", result.TechnicianNotification)
	}
	if !result.CustomerNotification.Sent {
		t.Errorf("customer outcome = %+v, want sent", result.CustomerNotification)
	}
	if !result.FollowUpScheduled {
		t.Error("follow-up should be scheduled")
	}
	if result.JobID == "" {
		t.Error("result missing job id")
	}
}

func TestSaveTemplateRejectsMalformedBody(t *testing.T) {
	sys := openSystem(t)

	err := sys.SaveTemplate(context.Background(), &fieldline.Template{
		Key:          "emergency_customer",
		LanguageCode: "en",
		Version:      1,
		Body:         "{name, a technician is on the way.",
		IsActive:     true,
	})
	if !errors.Is(err, fieldline.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestAssessWithoutEscalationDoesNotDispatch(t *testing.T) {
	sys := openSystem(t)
	ctx := context.Background()

	at := time.Date(2026, time.June, 3, 11, 0, 0, 0, time.UTC)
	assessment, sent := sys.AssessAndNotify(ctx, fieldline.ConversationTurn{
		Text:      "I have a question about maintenance scheduling.",
		Timestamp: at,
	}, fieldline.ScoringContext{Now: at})

	if assessment.EscalationRequired || sent {
		t.Fatalf("routine call escalated: %+v sent=%v", assessment, sent)
	}

	health, err := sys.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 0 {
		t.Errorf("jobs = %d, want none", health.Total)
	}
}

func TestEnqueueAndExecuteFollowUp(t *testing.T) {
	sys := openSystem(t)
	ctx := context.Background()

	err := sys.SaveTemplate(ctx, &fieldline.Template{
		Key:          "follow_up",
		LanguageCode: "en",
		Version:      1,
		Body:         "How did we do, {name}?",
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}

	job, err := sys.Enqueue(ctx, fieldline.WorkflowFollowUp, nil,
		fieldline.Customer{Phone: "+15550199", Name: "Maria"}, 0)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := sys.Execute(ctx, job.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	loaded, err := sys.Job(ctx, job.ID)
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	if loaded.Status != "completed" {
		t.Errorf("status = %q, want completed", loaded.Status)
	}
}
