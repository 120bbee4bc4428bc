// Package worker consumes queued pipeline tasks. Uploaded jobs are
// acknowledged at the HTTP layer and picked up here.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"voicebrief/backend/internal/middleware"
)

type PipelineRunner interface {
	Run(ctx context.Context, jobID string) error
}

type TaskPayload struct {
	JobID         string `json:"job_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type TaskConsumer struct {
	runner PipelineRunner
}

func NewTaskConsumer(runner PipelineRunner) *TaskConsumer {
	return &TaskConsumer{runner: runner}
}

func (h *TaskConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload TaskPayload
	err := json.Unmarshal(m.Body, &payload)

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if err != nil {
		slog.ErrorContext(ctx, "invalid message format", "error", err)
		return nil // Don't retry invalid messages
	}

	if payload.JobID == "" {
		slog.ErrorContext(ctx, "missing job_id, dropping message")
		return nil
	}

	slog.InfoContext(ctx, "processing brief task", "job_id", payload.JobID)

	// The runner records stage failures on the job record itself; an error
	// here means the record could not be read or written, which is worth a
	// requeue.
	if err := h.runner.Run(ctx, payload.JobID); err != nil {
		slog.ErrorContext(ctx, "pipeline run failed", "error", err, "job_id", payload.JobID)
		return err
	}

	return nil
}
