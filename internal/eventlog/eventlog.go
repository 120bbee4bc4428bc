// Package eventlog keeps an append-only audit trail of ingestion attempts.
// Recording is at-least-once and best-effort: a sink failure is logged and
// never surfaces back into the ingestion path.
package eventlog

import (
	"context"
	"log/slog"
	"time"
)

type Outcome string

const (
	// Ingress outcomes, one per ingestion attempt.
	OutcomeAccepted Outcome = "accepted"
	OutcomeDryRun   Outcome = "dry_run"
	OutcomeRejected Outcome = "rejected"

	// Terminal outcomes, written by the pipeline runner.
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	SourceTag string    `json:"source_tag"`
	TargetRef string    `json:"target_ref"`
	Outcome   Outcome   `json:"outcome"`
	Error     string    `json:"error,omitempty"`
}

// Sink is a durable append target. Implementations never update or delete.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

// Recorder wraps a Sink with the fire-and-forget contract.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
}

func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	return &Recorder{sink: sink, logger: logger}
}

// Record appends e, stamping the time if unset. Failures are logged only.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if err := r.sink.Append(ctx, e); err != nil {
		r.logger.ErrorContext(ctx, "failed to append ingest event",
			"error", err, "source_tag", e.SourceTag, "outcome", e.Outcome)
	}
}
