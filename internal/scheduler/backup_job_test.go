package scheduler

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/liquidity-sentinel/internal/backup"
)

// memStore is an in-memory backup.ObjectStore.
type memStore struct {
	uploads   []string
	objects   []types.Object
	deleted   []string
	uploadErr error
	deleteErr error
}

func (m *memStore) Upload(_ context.Context, key string, body io.Reader, _ int64) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}
	m.uploads = append(m.uploads, key)
	return nil
}

func (m *memStore) List(_ context.Context, _ string) ([]types.Object, error) {
	return m.objects, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, key)
	return nil
}

// stubSnapshotter writes fixed bytes as its snapshot.
type stubSnapshotter struct{ name string }

func (s stubSnapshotter) Name() string { return s.name }

func (s stubSnapshotter) VacuumInto(destPath string) error {
	return os.WriteFile(destPath, []byte(s.name+" snapshot"), 0644)
}

func storedBackup(age time.Duration) types.Object {
	name := "liquidity-backup-" + time.Now().UTC().Add(-age).Format("2006-01-02-150405") + ".tar.gz"
	return types.Object{Key: aws.String(name), Size: aws.Int64(100)}
}

func newBackupJob(t *testing.T, store *memStore, retentionDays int) *BackupJob {
	t.Helper()
	service := backup.NewService(store, []backup.Snapshotter{stubSnapshotter{name: "market"}},
		t.TempDir(), zerolog.Nop())
	return NewBackupJob(service, retentionDays, zerolog.Nop())
}

func TestBackupJob_UploadsAndRotates(t *testing.T) {
	store := &memStore{}
	// Three recent backups plus two ancient ones; retention 7 days keeps
	// the newest three and deletes the rest.
	store.objects = []types.Object{
		storedBackup(1 * time.Hour),
		storedBackup(24 * time.Hour),
		storedBackup(48 * time.Hour),
		storedBackup(20 * 24 * time.Hour),
		storedBackup(40 * 24 * time.Hour),
	}
	job := newBackupJob(t, store, 7)

	require.NoError(t, job.Run())

	assert.Len(t, store.uploads, 1)
	assert.Len(t, store.deleted, 2)
}

func TestBackupJob_UploadFailureFailsJob(t *testing.T) {
	store := &memStore{uploadErr: errors.New("bucket unavailable")}
	job := newBackupJob(t, store, 7)

	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup failed")
}

func TestBackupJob_RotationFailureDoesNotFailJob(t *testing.T) {
	store := &memStore{deleteErr: errors.New("permission denied")}
	store.objects = []types.Object{
		storedBackup(1 * time.Hour),
		storedBackup(24 * time.Hour),
		storedBackup(48 * time.Hour),
		storedBackup(30 * 24 * time.Hour),
	}
	job := newBackupJob(t, store, 7)

	require.NoError(t, job.Run())
	assert.Len(t, store.uploads, 1)
}
