// Package audit provides a best-effort side channel for assessment and
// dispatch audit records. Producers never block: records flow through a
// bounded queue consumed by a background goroutine, and the queue drops
// (and counts) records when full.
package audit

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fieldline/internal/logging"
)

// Record is one audit entry. Fields are flat strings and numbers so the
// consumer can log them without further allocation.
type Record struct {
	Event        string
	AssessmentID string
	JobID        string
	Language     string
	Score        float64
	Escalated    bool
	Detail       string
	Timestamp    time.Time
}

// Sink accepts audit records without ever blocking or failing the caller.
type Sink struct {
	ch      chan Record
	logger  *slog.Logger
	dropped atomic.Uint64

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewSink starts the consumer goroutine. size bounds the queue; values
// below one fall back to a single-slot queue.
func NewSink(logger *slog.Logger, size int) *Sink {
	if logger == nil {
		logger = logging.NewNop()
	}
	if size < 1 {
		size = 1
	}
	s := &Sink{
		ch:     make(chan Record, size),
		logger: logger.With(logging.String(logging.FieldComponent, "audit")),
		done:   make(chan struct{}),
	}
	go s.consume()
	return s
}

// Record enqueues rec, dropping it when the queue is full or the sink
// is already closed.
func (s *Sink) Record(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.ch <- rec:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns the number of records discarded because the queue was full.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close stops the consumer after draining queued records. A Record
// racing Close degrades to a drop.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.ch)
		<-s.done
	})
}

func (s *Sink) consume() {
	defer close(s.done)
	for rec := range s.ch {
		s.logger.Info("audit record",
			logging.String(logging.FieldEventType, rec.Event),
			logging.String("assessment_id", rec.AssessmentID),
			logging.String(logging.FieldJobID, rec.JobID),
			logging.String("language", rec.Language),
			logging.Float64("score", rec.Score),
			logging.Bool("escalated", rec.Escalated),
			logging.String("detail", rec.Detail),
			logging.String("at", rec.Timestamp.Format(time.RFC3339)),
		)
	}
}
