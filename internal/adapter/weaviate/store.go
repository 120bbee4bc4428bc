package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"voicebrief/backend/features/job"
	"voicebrief/backend/internal/vector"
)

// Store indexes transcript chunks per job. It backs both the pipeline's
// indexing stage and the job detail endpoint's chunk listing.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// EnsureSchema creates or upgrades the transcript chunk class.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewSchemaAdapter(s.client))
}

// IndexTranscript writes chunks in order. Callers delete existing chunks
// first so a re-run never duplicates.
func (s *Store) IndexTranscript(ctx context.Context, jobID string, chunks []job.Chunk) error {
	for _, chunk := range chunks {
		_, err := s.client.Data().Creator().
			WithClassName(vector.ClassTranscriptChunk).
			WithProperties(map[string]interface{}{
				"content":    chunk.Content,
				"jobId":      jobID,
				"chunkIndex": chunk.ChunkIndex,
			}).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to index chunk %d: %w", chunk.ChunkIndex, err)
		}
	}
	return nil
}

func (s *Store) DeleteChunksByJobID(ctx context.Context, jobID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassTranscriptChunk).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"jobId"}).
			WithOperator(filters.Equal).
			WithValueString(jobID)).
		Do(ctx)
	return err
}

func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassTranscriptChunk).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if classes, ok := data[vector.ClassTranscriptChunk].([]interface{}); ok && len(classes) > 0 {
			if first, ok := classes[0].(map[string]interface{}); ok {
				if meta, ok := first["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}

func (s *Store) GetChunksByJobID(ctx context.Context, jobID string) ([]job.Chunk, error) {
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "jobId"},
		{Name: "chunkIndex"},
	}

	where := filters.Where().
		WithOperator(filters.Equal).
		WithPath([]string{"jobId"}).
		WithValueString(jobID)

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassTranscriptChunk).
		WithWhere(where).
		WithLimit(1000).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var chunks []job.Chunk
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if raw, ok := data[vector.ClassTranscriptChunk].([]interface{}); ok {
			for _, c := range raw {
				props, ok := c.(map[string]interface{})
				if !ok {
					continue
				}
				chunk := job.Chunk{}
				if content, ok := props["content"].(string); ok {
					chunk.Content = content
				}
				if id, ok := props["jobId"].(string); ok {
					chunk.JobID = id
				}
				if idx, ok := props["chunkIndex"].(float64); ok {
					chunk.ChunkIndex = int(idx)
				}
				chunks = append(chunks, chunk)
			}
		}
	}
	return chunks, nil
}
