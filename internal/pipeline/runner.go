// Package pipeline drives one job through the fixed sequence of external
// operations: fetch the input, analyze it, index the transcript, record the
// brief. Every transition is written through the job repository before the
// next stage starts, so the record is always at most one stage behind
// reality.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voicebrief/backend/features/ingest"
	"voicebrief/backend/features/job"
	"voicebrief/backend/internal/brief"
	"voicebrief/backend/internal/eventlog"
	"voicebrief/backend/internal/retry"
	"voicebrief/backend/internal/text"
)

// Analysis is the structured result of the analyze stage.
type Analysis struct {
	Transcript string   `json:"transcript"`
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights,omitempty"`
	Language   string   `json:"language,omitempty"`
}

type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, input []byte) (*Analysis, error)
}

type ChunkIndexer interface {
	IndexTranscript(ctx context.Context, jobID string, chunks []job.Chunk) error
	DeleteChunksByJobID(ctx context.Context, jobID string) error
}

type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

type BriefWriter interface {
	Write(e brief.Entry) error
}

// RecipientSource resolves the briefing recipient at terminal time, so a
// runtime settings change applies to jobs already in flight.
type RecipientSource interface {
	NotifyRecipient(ctx context.Context) (addr string, enabled bool)
}

type Options struct {
	Flags        ingest.Flags
	ChunkSize    int
	ChunkOverlap int

	FetchPolicy   retry.Policy
	AnalyzePolicy retry.Policy
	IndexPolicy   retry.Policy
	RecordPolicy  retry.Policy
}

const fallbackSummary = "processing complete"

type Runner struct {
	repo       job.Repository
	fetcher    Fetcher
	analyzer   Analyzer
	indexer    ChunkIndexer
	notifier   Notifier
	briefs     BriefWriter
	events     *eventlog.Recorder
	recipients RecipientSource
	opts       Options
	logger     *slog.Logger
}

func NewRunner(
	repo job.Repository,
	fetcher Fetcher,
	analyzer Analyzer,
	indexer ChunkIndexer,
	notifier Notifier,
	briefs BriefWriter,
	events *eventlog.Recorder,
	recipients RecipientSource,
	opts Options,
	logger *slog.Logger,
) *Runner {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}
	return &Runner{
		repo:       repo,
		fetcher:    fetcher,
		analyzer:   analyzer,
		indexer:    indexer,
		notifier:   notifier,
		briefs:     briefs,
		events:     events,
		recipients: recipients,
		opts:       opts,
		logger:     logger,
	}
}

// Run drives the job with the given id to a terminal state. A stage failure
// is recorded on the job itself and is not an error to the caller; only
// caller mistakes (unknown or already-running job) and storage failures
// propagate.
func (r *Runner) Run(ctx context.Context, jobID string) error {
	j, err := r.repo.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if j.Status != job.StatusUploaded {
		return fmt.Errorf("job %s is %s, not runnable", jobID, j.Status)
	}

	if err := r.setStatus(ctx, jobID, job.StatusProcessing); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	input, err := retry.Do(ctx, r.policy("fetch", r.opts.FetchPolicy), func(ctx context.Context) ([]byte, error) {
		return r.fetcher.Fetch(ctx, j.TargetRef)
	})
	if err != nil {
		return r.fail(ctx, j, "fetch", err)
	}

	analysis, err := retry.Do(ctx, r.policy("analyze", r.opts.AnalyzePolicy), func(ctx context.Context) (*Analysis, error) {
		return r.analyzer.Analyze(ctx, input)
	})
	if err != nil {
		return r.fail(ctx, j, "analyze", err)
	}

	_, err = retry.Do(ctx, r.policy("index", r.opts.IndexPolicy), func(ctx context.Context) (struct{}, error) {
		// Delete-then-index keeps redelivered tasks idempotent.
		if err := r.indexer.DeleteChunksByJobID(ctx, j.ID); err != nil {
			return struct{}{}, err
		}
		pieces := text.ChunkTranscript(analysis.Transcript, r.opts.ChunkSize, r.opts.ChunkOverlap)
		chunks := make([]job.Chunk, 0, len(pieces))
		for i, p := range pieces {
			chunks = append(chunks, job.Chunk{JobID: j.ID, Content: p, ChunkIndex: i})
		}
		return struct{}{}, r.indexer.IndexTranscript(ctx, j.ID, chunks)
	})
	if err != nil {
		return r.fail(ctx, j, "index", err)
	}

	_, err = retry.Do(ctx, r.policy("record", r.opts.RecordPolicy), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.briefs.Write(brief.Entry{
			JobID:           j.ID,
			Summary:         analysis.Summary,
			Language:        analysis.Language,
			Highlights:      analysis.Highlights,
			TranscriptChars: len(analysis.Transcript),
		})
	})
	if err != nil {
		return r.fail(ctx, j, "record", err)
	}

	summary := strings.TrimSpace(analysis.Summary)
	if summary == "" {
		summary = fallbackSummary
	}

	payload, err := json.Marshal(analysis)
	if err != nil {
		return r.fail(ctx, j, "record", err)
	}

	done := job.StatusDone
	noErr := ""
	if err := r.repo.Update(ctx, j.ID, job.Update{
		Status:        &done,
		ResultSummary: &summary,
		Payload:       payload,
		Error:         &noErr,
	}); err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}

	r.events.Record(ctx, eventlog.Event{
		SourceTag: string(j.SourceType),
		TargetRef: j.TargetRef,
		Outcome:   eventlog.OutcomeCompleted,
	})

	r.notify(ctx, j.ID,
		fmt.Sprintf("Briefing ready: %s", summary),
		fmt.Sprintf("Job %s finished.\n\n%s", j.ID, summary))
	return nil
}

// fail records the terminal error state. Later stages never run; the job
// record is the sole carrier of the failure, so nothing re-raises.
func (r *Runner) fail(ctx context.Context, j *job.Job, stage string, cause error) error {
	r.logger.ErrorContext(ctx, "pipeline stage failed", "job_id", j.ID, "stage", stage, "error", cause)

	failed := job.StatusError
	summary := stage + " failed"
	errMsg := cause.Error()
	if err := r.repo.Update(ctx, j.ID, job.Update{
		Status:        &failed,
		ResultSummary: &summary,
		Error:         &errMsg,
	}); err != nil {
		return fmt.Errorf("failed to record job error state: %w", err)
	}

	r.events.Record(ctx, eventlog.Event{
		SourceTag: string(j.SourceType),
		TargetRef: j.TargetRef,
		Outcome:   eventlog.OutcomeFailed,
		Error:     errMsg,
	})

	r.notify(ctx, j.ID,
		fmt.Sprintf("Briefing failed: %s", summary),
		fmt.Sprintf("Job %s failed at the %s stage:\n\n%s", j.ID, stage, errMsg))
	return nil
}

// notify attempts the best-effort briefing email exactly once per terminal
// job. Its outcome lands in dedicated fields and never touches Status or
// ResultSummary.
func (r *Runner) notify(ctx context.Context, jobID, subject, body string) {
	addr, enabled := r.recipients.NotifyRecipient(ctx)

	decision := ingest.DecideOutbound(r.opts.Flags, addr)
	if !enabled || decision != ingest.DecisionProceed {
		skipped := job.NotificationSkipped
		if err := r.repo.Update(ctx, jobID, job.Update{NotificationStatus: &skipped}); err != nil {
			r.logger.WarnContext(ctx, "failed to record skipped notification", "job_id", jobID, "error", err)
		}
		return
	}

	if err := r.notifier.Send(ctx, addr, subject, body); err != nil {
		r.logger.WarnContext(ctx, "notification failed", "job_id", jobID, "error", err)
		failed := job.NotificationError
		msg := err.Error()
		if updErr := r.repo.Update(ctx, jobID, job.Update{NotificationStatus: &failed, NotificationError: &msg}); updErr != nil {
			r.logger.WarnContext(ctx, "failed to record notification error", "job_id", jobID, "error", updErr)
		}
		return
	}

	sent := job.NotificationSent
	now := time.Now()
	if err := r.repo.Update(ctx, jobID, job.Update{NotificationStatus: &sent, NotificationSentAt: &now}); err != nil {
		r.logger.WarnContext(ctx, "failed to record sent notification", "job_id", jobID, "error", err)
	}
}

func (r *Runner) setStatus(ctx context.Context, jobID string, s job.Status) error {
	return r.repo.Update(ctx, jobID, job.Update{Status: &s})
}

func (r *Runner) policy(stage string, p retry.Policy) retry.Policy {
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		r.logger.WarnContext(context.Background(), "stage attempt failed, backing off",
			"stage", stage, "attempt", attempt, "delay", delay, "error", err)
	}
	return p
}
