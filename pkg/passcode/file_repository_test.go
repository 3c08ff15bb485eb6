package passcode

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFileRepo(t *testing.T) (*FileRepository, string) {
	dir := t.TempDir()
	repo, err := NewFileRepository(dir)
	require.NoError(t, err)
	return repo, dir
}

func TestFileRepository(t *testing.T) {
	runRepositorySuite(t, func(t *testing.T) Repository {
		repo, _ := setupFileRepo(t)
		return repo
	})
}

func TestFileRepository_NewRepository(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "passcodes")

	// Should create directory if it doesn't exist
	repo, err := NewFileRepository(dir)
	assert.NoError(t, err)
	assert.NotNil(t, repo)
	assert.DirExists(t, dir)
}

func TestFileRepository_Persistence(t *testing.T) {
	repo, dir := setupFileRepo(t)
	ctx := context.Background()

	issued, err := repo.Issue(ctx, CreateParams{UserRef: "user-a", Code: "123456", Now: t0})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, passcodeFileName))

	reopened, err := NewFileRepository(dir)
	require.NoError(t, err)

	active, err := reopened.FindActiveByUser(ctx, "user-a", t0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, issued.ID, active[0].ID)

	consumed, err := reopened.ConsumeByCode(ctx, "123456", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "user-a", consumed.UserRef)

	again, err := NewFileRepository(dir)
	require.NoError(t, err)
	_, err = again.ConsumeByCode(ctx, "123456", t0.Add(time.Minute))
	assert.ErrorIs(t, err, ErrPasscodeNotFound, "consumption is persisted")
}

func TestFileRepository_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, passcodeFileName), nil, 0600))

	repo, err := NewFileRepository(dir)
	require.NoError(t, err)

	active, err := repo.FindActiveByUser(context.Background(), "user-a", t0)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestFileRepository_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, passcodeFileName), []byte("{not json"), 0600))

	_, err := NewFileRepository(dir)
	assert.Error(t, err)
}
