// Package delivery aggregates delivery records into effectiveness
// reports: delivery rate, confirmation latency, and per-language and
// per-template breakdowns over a time window.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fieldline/internal/logging"
	"fieldline/internal/services"
	"fieldline/internal/store"
)

// Counts is one breakdown bucket.
type Counts struct {
	Total     int
	Delivered int
	Rate      float64
}

// Report summarizes delivery outcomes over a window.
type Report struct {
	From time.Time
	To   time.Time

	Total       int
	Delivered   int
	Failed      int
	Undelivered int
	Awaiting    int

	// DeliveryRate is delivered over total; zero when nothing was sent.
	DeliveryRate float64
	// AvgLatency averages sent-to-confirmed time over delivered messages.
	AvgLatency time.Duration

	ByLanguage map[string]Counts
	ByTemplate map[string]Counts
}

// Tracker records provider callbacks and builds reports.
type Tracker struct {
	store  *store.Store
	logger *slog.Logger
}

// NewTracker constructs a tracker over the given store.
func NewTracker(st *store.Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{
		store:  st,
		logger: logger.With(logging.String(logging.FieldComponent, "delivery")),
	}
}

// Confirm records a provider delivery confirmation. Confirming a message
// that is not in the sent state is ErrNotFound; duplicate callbacks from
// providers are routine and callers usually ignore that error.
func (t *Tracker) Confirm(ctx context.Context, messageID string, at time.Time) error {
	ok, err := t.store.MarkDelivered(ctx, messageID, at)
	if err != nil {
		return err
	}
	if !ok {
		return services.Wrap(services.ErrNotFound, "delivery", "confirm", fmt.Sprintf("message %s not awaiting confirmation", messageID), nil)
	}
	t.logger.Info("delivery confirmed", logging.String("message_id", messageID))
	return nil
}

// Reject records a provider undeliverable report.
func (t *Tracker) Reject(ctx context.Context, messageID, reason string) error {
	ok, err := t.store.MarkUndelivered(ctx, messageID, reason)
	if err != nil {
		return err
	}
	if !ok {
		return services.Wrap(services.ErrNotFound, "delivery", "reject", fmt.Sprintf("message %s not awaiting confirmation", messageID), nil)
	}
	t.logger.Warn("delivery rejected",
		logging.String("message_id", messageID),
		logging.String("reason", reason))
	return nil
}

// Report aggregates delivery records sent in [from, to).
func (t *Tracker) Report(ctx context.Context, from, to time.Time) (Report, error) {
	records, err := t.store.DeliveriesBetween(ctx, from, to)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		From:       from,
		To:         to,
		ByLanguage: make(map[string]Counts),
		ByTemplate: make(map[string]Counts),
	}

	var latencySum time.Duration
	for _, rec := range records {
		report.Total++
		delivered := rec.Status == store.DeliveryDelivered
		switch rec.Status {
		case store.DeliveryDelivered:
			report.Delivered++
			if rec.DeliveredAt != nil {
				latencySum += rec.DeliveredAt.Sub(rec.SentAt)
			}
		case store.DeliveryFailed:
			report.Failed++
		case store.DeliveryUndelivered:
			report.Undelivered++
		default:
			report.Awaiting++
		}
		bump(report.ByLanguage, rec.LanguageUsed, delivered)
		bump(report.ByTemplate, rec.TemplateKey, delivered)
	}

	if report.Total > 0 {
		report.DeliveryRate = float64(report.Delivered) / float64(report.Total)
	}
	if report.Delivered > 0 {
		report.AvgLatency = latencySum / time.Duration(report.Delivered)
	}
	for key, counts := range report.ByLanguage {
		counts.Rate = rate(counts)
		report.ByLanguage[key] = counts
	}
	for key, counts := range report.ByTemplate {
		counts.Rate = rate(counts)
		report.ByTemplate[key] = counts
	}
	return report, nil
}

func bump(buckets map[string]Counts, key string, delivered bool) {
	if key == "" {
		key = "unknown"
	}
	counts := buckets[key]
	counts.Total++
	if delivered {
		counts.Delivered++
	}
	buckets[key] = counts
}

func rate(counts Counts) float64 {
	if counts.Total == 0 {
		return 0
	}
	return float64(counts.Delivered) / float64(counts.Total)
}
