package job_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebrief/backend/features/job"
	"voicebrief/backend/internal/testutils"
)

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	repo := job.NewPostgresRepo(s.DB)
	ctx := context.Background()

	j := &job.Job{
		ID:                 uuid.New().String(),
		SourceType:         job.SourceWebhook,
		TargetRef:          "https://example.com/call.mp3",
		ContentHash:        "hash1",
		Status:             job.StatusUploaded,
		NotificationStatus: job.NotificationPending,
	}
	require.NoError(t, repo.Create(ctx, j))
	assert.False(t, j.CreatedAt.IsZero())

	// Duplicate primary key is surfaced as such.
	err := repo.Create(ctx, j)
	assert.ErrorIs(t, err, job.ErrDuplicateID)

	exists, err := repo.ExistsByHash(ctx, "hash1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByHash(ctx, "other")
	require.NoError(t, err)
	assert.False(t, exists)

	// Partial update touches only the named fields.
	status := job.StatusDone
	summary := "weekly sync brief"
	require.NoError(t, repo.Update(ctx, j.ID, job.Update{Status: &status, ResultSummary: &summary}))

	got, err := repo.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusDone, got.Status)
	assert.Equal(t, "weekly sync brief", got.ResultSummary)
	assert.Equal(t, "https://example.com/call.mp3", got.TargetRef)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.Delete(ctx, j.ID))
	_, err = repo.Get(ctx, j.ID)
	assert.ErrorIs(t, err, job.ErrNotFound)

	// Delete is idempotent.
	assert.NoError(t, repo.Delete(ctx, j.ID))
}
