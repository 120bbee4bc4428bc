package job

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChunkStore struct {
	chunks    []Chunk
	getErr    error
	deleteErr error
	deleted   []string
}

func (m *mockChunkStore) GetChunksByJobID(ctx context.Context, jobID string) ([]Chunk, error) {
	return m.chunks, m.getErr
}

func (m *mockChunkStore) DeleteChunksByJobID(ctx context.Context, jobID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, jobID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func TestService_GetIncludesChunks(t *testing.T) {
	repo := NewMemoryRepo()
	require.NoError(t, repo.Create(context.Background(), newTestJob("a")))

	store := &mockChunkStore{chunks: []Chunk{{JobID: "a", Content: "hello", ChunkIndex: 0}}}
	svc := NewService(repo, store, testLogger())

	detail, err := svc.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, detail.TotalChunks)
	assert.Equal(t, "hello", detail.Chunks[0].Content)
}

func TestService_GetChunkFetchFailureIsNotFatal(t *testing.T) {
	repo := NewMemoryRepo()
	require.NoError(t, repo.Create(context.Background(), newTestJob("a")))

	store := &mockChunkStore{getErr: errors.New("index down")}
	svc := NewService(repo, store, testLogger())

	detail, err := svc.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, detail.Chunks)
	assert.Equal(t, 0, detail.TotalChunks)
}

func TestService_DeleteRemovesChunksAndRecord(t *testing.T) {
	repo := NewMemoryRepo()
	require.NoError(t, repo.Create(context.Background(), newTestJob("a")))

	store := &mockChunkStore{}
	svc := NewService(repo, store, testLogger())

	require.NoError(t, svc.Delete(context.Background(), "a"))
	assert.Equal(t, []string{"a"}, store.deleted)

	_, err := repo.Get(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteNotFound(t *testing.T) {
	svc := NewService(NewMemoryRepo(), &mockChunkStore{}, testLogger())
	err := svc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteChunkCleanupFailureAborts(t *testing.T) {
	repo := NewMemoryRepo()
	require.NoError(t, repo.Create(context.Background(), newTestJob("a")))

	store := &mockChunkStore{deleteErr: errors.New("index down")}
	svc := NewService(repo, store, testLogger())

	err := svc.Delete(context.Background(), "a")
	assert.Error(t, err)

	// Record survives: the blob cleanup collaborator failed first.
	_, getErr := repo.Get(context.Background(), "a")
	assert.NoError(t, getErr)
}

func TestService_List(t *testing.T) {
	repo := NewMemoryRepo()
	require.NoError(t, repo.Create(context.Background(), newTestJob("a")))
	require.NoError(t, repo.Create(context.Background(), newTestJob("b")))

	svc := NewService(repo, &mockChunkStore{}, testLogger())
	jobs, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
