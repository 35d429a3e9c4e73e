package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/backup"
)

// backupTimeout bounds snapshot plus upload plus rotation.
const backupTimeout = 10 * time.Minute

// BackupJob snapshots the databases to R2 and rotates old archives.
// Registered only when R2 credentials are configured.
type BackupJob struct {
	backups       *backup.Service
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the backup job.
func NewBackupJob(backups *backup.Service, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups:       backups,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name.
func (j *BackupJob) Name() string {
	return "backup"
}

// Run creates and uploads a backup, then rotates old ones. A rotation
// failure is logged but does not fail the job: the backup itself landed.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := j.backups.CreateAndUpload(ctx); err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	if err := j.backups.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
