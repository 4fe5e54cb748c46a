package db

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var fs embed.FS

// goose keeps its settings in package state
var migrateLock sync.Mutex

func Migrate(direction string, db *sql.DB) error {
	migrateLock.Lock()
	defer migrateLock.Unlock()
	goose.SetBaseFS(fs)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	migrateMethod := goose.Up
	if direction == "down" {
		migrateMethod = goose.Down
	}
	if err := migrateMethod(db, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate %v: %w", direction, err)
	}
	return nil
}
