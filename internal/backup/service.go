package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/aristath/liquidity-sentinel/internal/version"
)

const (
	archivePrefix    = "liquidity-backup-"
	archiveTimeFmt   = "2006-01-02-150405"
	metadataName     = "backup-metadata.json"
	minBackupsToKeep = 3
)

// Snapshotter is a live database that can write a consistent snapshot
// of itself to a file. Both database.DB and history.Archive satisfy it.
type Snapshotter interface {
	Name() string
	VacuumInto(destPath string) error
}

// ObjectStore is the bucket operations the service needs. *R2Client
// implements it.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
	List(ctx context.Context, prefix string) ([]types.Object, error)
	Delete(ctx context.Context, key string) error
}

// BackupMetadata describes one backup archive.
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Version   string             `json:"version"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes a single database file in the archive.
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo describes a backup stored in the bucket.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// Service creates, uploads and rotates database backups.
type Service struct {
	store   ObjectStore
	sources []Snapshotter
	dataDir string
	log     zerolog.Logger
}

// NewService creates a backup service over the given databases.
func NewService(store ObjectStore, sources []Snapshotter, dataDir string, log zerolog.Logger) *Service {
	return &Service{
		store:   store,
		sources: sources,
		dataDir: dataDir,
		log:     log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload snapshots every database into a staging directory,
// bundles the snapshots and a metadata file into a tar.gz archive and
// uploads it.
func (s *Service) CreateAndUpload(ctx context.Context) error {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, "r2-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata, err := s.snapshot(stagingDir)
	if err != nil {
		return err
	}

	archiveName := archivePrefix + time.Now().Format(archiveTimeFmt) + ".tar.gz"
	archivePath, err := s.buildArchive(stagingDir, archiveName, metadata)
	if err != nil {
		return err
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	if err := s.store.Upload(ctx, archiveName, archiveFile, archiveInfo.Size()); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("Backup uploaded")
	return nil
}

// snapshot writes a consistent copy of every source database into
// stagingDir and returns the archive metadata.
func (s *Service) snapshot(stagingDir string) (BackupMetadata, error) {
	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Databases: make([]DatabaseMetadata, 0, len(s.sources)),
	}

	for _, source := range s.sources {
		filename := source.Name() + ".db"
		destPath := filepath.Join(stagingDir, filename)

		s.log.Debug().Str("database", source.Name()).Msg("Snapshotting database")
		if err := source.VacuumInto(destPath); err != nil {
			return metadata, fmt.Errorf("failed to snapshot %s: %w", source.Name(), err)
		}

		info, err := os.Stat(destPath)
		if err != nil {
			return metadata, fmt.Errorf("failed to stat %s snapshot: %w", source.Name(), err)
		}
		checksum, err := fileChecksum(destPath)
		if err != nil {
			return metadata, fmt.Errorf("failed to checksum %s snapshot: %w", source.Name(), err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      source.Name(),
			Filename:  filename,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}
	return metadata, nil
}

// buildArchive writes the metadata file and bundles it with the
// snapshots into a tar.gz archive inside stagingDir. Returns the
// archive path.
func (s *Service) buildArchive(stagingDir, archiveName string, metadata BackupMetadata) (string, error) {
	metadataPath := filepath.Join(stagingDir, metadataName)
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	filenames := make([]string, 0, len(metadata.Databases)+1)
	for _, db := range metadata.Databases {
		filenames = append(filenames, db.Filename)
	}
	filenames = append(filenames, metadataName)

	archivePath := filepath.Join(stagingDir, archiveName)
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()
	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for _, filename := range filenames {
		if err := addFileToArchive(tarWriter, filepath.Join(stagingDir, filename), filename); err != nil {
			return "", fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}
	}
	return archivePath, nil
}

// ListBackups lists the stored backups, newest first.
func (s *Service) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	now := time.Now()
	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}
		timestamp, ok := parseArchiveTimestamp(*obj.Key)
		if !ok {
			s.log.Warn().Str("filename", *obj.Key).Msg("Unrecognized object in backup prefix")
			continue
		}

		var sizeBytes int64
		if obj.Size != nil {
			sizeBytes = *obj.Size
		}
		backups = append(backups, BackupInfo{
			Filename:  *obj.Key,
			Timestamp: timestamp,
			SizeBytes: sizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than the retention period,
// always keeping the newest three regardless of age.
func (s *Service) RotateOldBackups(ctx context.Context, retentionDays int) error {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}

	stale := expired(backups, retentionDays, time.Now())
	deleted := 0
	for _, backup := range stale {
		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().Err(err).
				Str("filename", backup.Filename).
				Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().
			Str("filename", backup.Filename).
			Time("timestamp", backup.Timestamp).
			Msg("Deleted old backup")
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return nil
}

// expired returns the backups eligible for deletion: everything past
// the newest minBackupsToKeep that is older than the retention cutoff.
// backups must be sorted newest first. retentionDays 0 keeps everything.
func expired(backups []BackupInfo, retentionDays int, now time.Time) []BackupInfo {
	if retentionDays <= 0 || len(backups) <= minBackupsToKeep {
		return nil
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	var stale []BackupInfo
	for _, backup := range backups[minBackupsToKeep:] {
		if backup.Timestamp.Before(cutoff) {
			stale = append(stale, backup)
		}
	}
	return stale
}

// parseArchiveTimestamp extracts the creation time from an archive
// name like "liquidity-backup-2026-01-08-143022.tar.gz".
func parseArchiveTimestamp(filename string) (time.Time, bool) {
	if !strings.HasPrefix(filename, archivePrefix) || !strings.HasSuffix(filename, ".tar.gz") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(filename, archivePrefix), ".tar.gz")
	timestamp, err := time.Parse(archiveTimeFmt, raw)
	if err != nil {
		return time.Time{}, false
	}
	return timestamp, true
}

// fileChecksum returns the SHA256 checksum of a file.
func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

// writeMetadata writes backup metadata as indented JSON.
func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// addFileToArchive appends one file to the tar stream.
func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tarWriter, file)
	return err
}
