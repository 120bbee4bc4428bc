package job

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// ChunkStore is the transcript index; job deletion removes a job's chunks so
// no orphaned artifacts survive the record.
type ChunkStore interface {
	GetChunksByJobID(ctx context.Context, jobID string) ([]Chunk, error)
	DeleteChunksByJobID(ctx context.Context, jobID string) error
}

// Chunk is one indexed slice of a job's transcript.
type Chunk struct {
	JobID      string `json:"job_id"`
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunk_index"`
}

type Service struct {
	repo       Repository
	chunkStore ChunkStore
	logger     *slog.Logger
}

func NewService(repo Repository, chunkStore ChunkStore, logger *slog.Logger) *Service {
	return &Service{repo: repo, chunkStore: chunkStore, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

type Detail struct {
	Job
	Chunks      []Chunk `json:"chunks"`
	TotalChunks int     `json:"total_chunks"`
}

func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	chunks, err := s.chunkStore.GetChunksByJobID(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch transcript chunks", "error", err, "job_id", id)
		chunks = []Chunk{}
	}

	return &Detail{
		Job:         *j,
		Chunks:      chunks,
		TotalChunks: len(chunks),
	}, nil
}

// Delete is the administrative removal: record, indexed transcript chunks,
// and the uploaded blob all go.
func (s *Service) Delete(ctx context.Context, id string) error {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.chunkStore.DeleteChunksByJobID(ctx, id); err != nil {
		return err
	}

	if j.SourceType == SourceFile && !strings.HasPrefix(j.TargetRef, "mock:") {
		if err := os.Remove(j.TargetRef); err != nil && !os.IsNotExist(err) {
			s.logger.WarnContext(ctx, "failed to remove uploaded file", "error", err, "job_id", id)
		}
	}

	return s.repo.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
