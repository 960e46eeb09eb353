package delivery_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"fieldline/internal/delivery"
	"fieldline/internal/services"
	"fieldline/internal/store"
	"fieldline/internal/testsupport"
)

func seedRecord(t *testing.T, st *store.Store, jobID, lang, templateKey string, sentAt time.Time) string {
	t.Helper()
	rec := &store.DeliveryRecord{
		MessageID:    uuid.NewString(),
		JobID:        jobID,
		Recipient:    "+15550199",
		Channel:      "primary",
		TemplateKey:  templateKey,
		LanguageUsed: lang,
		Status:       store.DeliverySent,
		SentAt:       sentAt,
	}
	if err := st.RecordDelivery(context.Background(), rec); err != nil {
		t.Fatalf("RecordDelivery: %v", err)
	}
	return rec.MessageID
}

func seedJob(t *testing.T, st *store.Store) string {
	t.Helper()
	job := &store.Job{
		ID:           uuid.NewString(),
		WorkflowType: store.WorkflowFollowUp,
		MaxRetries:   3,
	}
	if err := st.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return job.ID
}

func TestReportAggregates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	tracker := delivery.NewTracker(st, nil)
	ctx := context.Background()

	jobID := seedJob(t, st)
	base := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

	enDelivered := seedRecord(t, st, jobID, "en", "emergency_customer", base)
	esDelivered := seedRecord(t, st, jobID, "es", "emergency_customer", base.Add(time.Minute))
	esRejected := seedRecord(t, st, jobID, "es", "follow_up", base.Add(2*time.Minute))
	seedRecord(t, st, jobID, "en", "follow_up", base.Add(3*time.Minute)) // stays awaiting

	if err := tracker.Confirm(ctx, enDelivered, base.Add(10*time.Second)); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := tracker.Confirm(ctx, esDelivered, base.Add(time.Minute+30*time.Second)); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := tracker.Reject(ctx, esRejected, "invalid number"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	report, err := tracker.Report(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("Report: %v", err)
	}

	if report.Total != 4 {
		t.Errorf("total = %d, want 4", report.Total)
	}
	if report.Delivered != 2 || report.Undelivered != 1 || report.Awaiting != 1 {
		t.Errorf("delivered/undelivered/awaiting = %d/%d/%d", report.Delivered, report.Undelivered, report.Awaiting)
	}
	if math.Abs(report.DeliveryRate-0.5) > 1e-9 {
		t.Errorf("rate = %v, want 0.5", report.DeliveryRate)
	}
	if report.AvgLatency != 20*time.Second {
		t.Errorf("avg latency = %v, want 20s", report.AvgLatency)
	}

	en := report.ByLanguage["en"]
	if en.Total != 2 || en.Delivered != 1 || math.Abs(en.Rate-0.5) > 1e-9 {
		t.Errorf("en bucket = %+v", en)
	}
	es := report.ByLanguage["es"]
	if es.Total != 2 || es.Delivered != 1 {
		t.Errorf("es bucket = %+v", es)
	}
	emergency := report.ByTemplate["emergency_customer"]
	if emergency.Total != 2 || emergency.Delivered != 2 || emergency.Rate != 1 {
		t.Errorf("emergency bucket = %+v", emergency)
	}
}

func TestReportWindowExcludesOutside(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	tracker := delivery.NewTracker(st, nil)
	ctx := context.Background()

	jobID := seedJob(t, st)
	base := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	seedRecord(t, st, jobID, "en", "survey", base.Add(-2*time.Hour))
	seedRecord(t, st, jobID, "en", "survey", base)

	report, err := tracker.Report(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Total != 1 {
		t.Errorf("total = %d, want 1 inside the window", report.Total)
	}
}

func TestConfirmUnknownMessage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	tracker := delivery.NewTracker(st, nil)
	ctx := context.Background()

	err := tracker.Confirm(ctx, uuid.NewString(), time.Now().UTC())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	jobID := seedJob(t, st)
	messageID := seedRecord(t, st, jobID, "en", "survey", time.Now().UTC())
	if err := tracker.Confirm(ctx, messageID, time.Now().UTC()); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	err = tracker.Confirm(ctx, messageID, time.Now().UTC())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("duplicate confirm: err = %v, want ErrNotFound", err)
	}
}
