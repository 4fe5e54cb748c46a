package db

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
)

// Snapshot writes a consistent copy of db to path, replacing any file there.
func Snapshot(ctx context.Context, db *sqlx.DB, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove old snapshot: %w", err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("failed to snapshot db: %w", err)
	}
	return nil
}
