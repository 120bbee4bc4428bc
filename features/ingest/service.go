package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"voicebrief/backend/features/job"
	"voicebrief/backend/internal/config"
	"voicebrief/backend/internal/eventlog"
	"voicebrief/backend/internal/middleware"
)

var (
	ErrInvalidTarget   = errors.New("missing or invalid target reference")
	ErrNetworkDisabled = errors.New("network access is disabled")
	ErrDuplicate       = errors.New("duplicate content")
)

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// PipelineRunner drives a job to a terminal state. The webhook leg calls it
// inline; the upload leg reaches it through the NSQ consumer.
type PipelineRunner interface {
	Run(ctx context.Context, jobID string) error
}

type TaskPayload struct {
	JobID         string `json:"job_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type Service struct {
	repo   job.Repository
	pub    TaskPublisher
	runner PipelineRunner
	events *eventlog.Recorder
	flags  Flags
	logger *slog.Logger
}

func NewService(repo job.Repository, pub TaskPublisher, runner PipelineRunner, events *eventlog.Recorder, flags Flags, logger *slog.Logger) *Service {
	return &Service{repo: repo, pub: pub, runner: runner, events: events, flags: flags, logger: logger}
}

// Result is what the webhook leg reports back to the HTTP layer.
type Result struct {
	Decision Decision `json:"decision"`
	Job      *job.Job `json:"job,omitempty"`
}

// IngestWebhook runs the full synchronous path: gate, job creation, pipeline,
// final job state. The caller blocks until the job is terminal.
func (s *Service) IngestWebhook(ctx context.Context, sourceTag string, target *string) (*Result, error) {
	decision := Decide(s.flags, target)

	switch decision {
	case DecisionRejectInvalid:
		s.record(ctx, sourceTag, "", eventlog.OutcomeRejected, ErrInvalidTarget.Error())
		return nil, ErrInvalidTarget
	case DecisionShortCircuitDryRun:
		s.record(ctx, sourceTag, *target, eventlog.OutcomeDryRun, "")
		return &Result{Decision: decision}, nil
	case DecisionRejectNetworkOff:
		s.record(ctx, sourceTag, *target, eventlog.OutcomeRejected, ErrNetworkDisabled.Error())
		return nil, ErrNetworkDisabled
	}

	// Redelivered webhooks are acknowledged without reprocessing.
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(*target)))
	exists, err := s.repo.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		s.record(ctx, sourceTag, *target, eventlog.OutcomeAccepted, "")
		return &Result{Decision: DecisionShortCircuitOK}, nil
	}

	j := &job.Job{
		ID:                 uuid.New().String(),
		SourceType:         job.SourceWebhook,
		TargetRef:          *target,
		ContentHash:        hash,
		Status:             job.StatusUploaded,
		NotificationStatus: job.NotificationPending,
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}

	s.record(ctx, sourceTag, *target, eventlog.OutcomeAccepted, "")

	if err := s.runner.Run(ctx, j.ID); err != nil {
		return nil, err
	}

	final, err := s.repo.Get(ctx, j.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Decision: DecisionProceed, Job: final}, nil
}

// IngestUpload registers an uploaded file and dispatches it to the task
// queue; the caller is acknowledged before the pipeline runs.
func (s *Service) IngestUpload(ctx context.Context, path, hash string) (*Result, error) {
	target := path
	decision := Decide(s.flags, &target)

	switch decision {
	case DecisionRejectInvalid:
		s.record(ctx, "upload", "", eventlog.OutcomeRejected, ErrInvalidTarget.Error())
		return nil, ErrInvalidTarget
	case DecisionShortCircuitDryRun:
		s.record(ctx, "upload", path, eventlog.OutcomeDryRun, "")
		return &Result{Decision: decision}, nil
	case DecisionRejectNetworkOff:
		s.record(ctx, "upload", path, eventlog.OutcomeRejected, ErrNetworkDisabled.Error())
		return nil, ErrNetworkDisabled
	}

	exists, err := s.repo.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if exists {
		s.record(ctx, "upload", path, eventlog.OutcomeRejected, ErrDuplicate.Error())
		return nil, ErrDuplicate
	}

	j := &job.Job{
		ID:                 uuid.New().String(),
		SourceType:         job.SourceFile,
		TargetRef:          path,
		ContentHash:        hash,
		Status:             job.StatusUploaded,
		NotificationStatus: job.NotificationPending,
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}

	s.record(ctx, "upload", path, eventlog.OutcomeAccepted, "")

	payload, _ := json.Marshal(TaskPayload{
		JobID:         j.ID,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicBriefTask, payload); err != nil {
		// The record stays in uploaded; operators see the stall via job listing.
		s.logger.ErrorContext(ctx, "failed to publish brief.task event", "error", err, "job_id", j.ID)
		return nil, err
	}
	s.logger.InfoContext(ctx, "published brief.task event", "job_id", j.ID, "path", path)

	return &Result{Decision: DecisionProceed, Job: j}, nil
}

func (s *Service) record(ctx context.Context, sourceTag, target string, outcome eventlog.Outcome, errMsg string) {
	s.events.Record(ctx, eventlog.Event{
		SourceTag: sourceTag,
		TargetRef: target,
		Outcome:   outcome,
		Error:     errMsg,
	})
}
