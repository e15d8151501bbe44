package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorylens/internal/database"
	"memorylens/internal/model"
)

func setupRepo(t *testing.T) Repository {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewRepository(db)
}

func TestRepository_RecordUpserts(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	p := model.UploadProgress{Key: "k1", Filename: "cat.jpg", Status: model.UploadError, Progress: 40, StartedAt: start, UpdatedAt: start.Add(time.Second)}
	require.NoError(t, repo.Record(ctx, "user_1", p))

	p.Status = model.UploadComplete
	p.Progress = 100
	p.Image = &model.Image{ID: "img-9"}
	p.UpdatedAt = start.Add(2 * time.Second)
	require.NoError(t, repo.Record(ctx, "user_1", p))

	entries, err := repo.ListBySubject(ctx, "user_1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "complete", entries[0].Status)
	assert.Equal(t, 100, entries[0].Progress)
	assert.Equal(t, "img-9", entries[0].ImageID)
}

func TestRepository_ListScopedAndOrdered(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, key := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Record(ctx, "user_1", model.UploadProgress{
			Key: key, Status: model.UploadComplete, Progress: 100, UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Record(ctx, "user_2", model.UploadProgress{Key: "z", Status: model.UploadError, UpdatedAt: base}))

	entries, err := repo.ListBySubject(ctx, "user_1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].Key)
	assert.Equal(t, "b", entries[1].Key)

	assert.ErrorIs(t, repo.Record(ctx, "", model.UploadProgress{Key: "x"}), ErrEmptySubject)
}

func TestObserver_IgnoresInFlight(t *testing.T) {
	repo := setupRepo(t)
	obs := Observer(repo, "user_1")

	obs.UploadChanged(model.UploadProgress{Key: "k", Status: model.UploadUploading, Progress: 50})
	entries, err := repo.ListBySubject(context.Background(), "user_1", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	obs.UploadChanged(model.UploadProgress{Key: "k", Status: model.UploadComplete, Progress: 100})
	entries, err = repo.ListBySubject(context.Background(), "user_1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRepository_Prune(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, key := range []string{"old1", "old2", "new"} {
		require.NoError(t, repo.Record(ctx, "user_1", model.UploadProgress{
			Key: key, Status: model.UploadComplete, Progress: 100, UpdatedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}

	n, err := repo.Prune(ctx, base.Add(36*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := repo.ListBySubject(ctx, "user_1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Key)
}
