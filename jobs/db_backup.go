package jobs

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bjarke-xyz/fmh/internal/config"
	"github.com/bjarke-xyz/fmh/internal/repository/db"
	"github.com/bjarke-xyz/fmh/metrics"
)

const JobIdentifierDbBackup = "FMH_DB_BACKUP_JOB"

type Uploader interface {
	Upload(ctx context.Context, path string) (int64, error)
}

// DbBackup snapshots the database to cfg.BackupDbPath and uploads it.
func DbBackup(cfg *config.Config, uploader Uploader) JobFunc {
	return func(ctx context.Context) error {
		conn, err := db.Open(cfg)
		if err != nil {
			return err
		}
		if err := db.Snapshot(ctx, conn, cfg.BackupDbPath); err != nil {
			return err
		}
		defer func() {
			if err := os.Remove(cfg.BackupDbPath); err != nil {
				log.Printf("error removing snapshot %v: %v", cfg.BackupDbPath, err)
			}
		}()
		size, err := uploader.Upload(ctx, cfg.BackupDbPath)
		if err != nil {
			return fmt.Errorf("failed to backup db: %w", err)
		}
		metrics.DbBackupSizeSet(size)
		return nil
	}
}
