package db

import (
	"context"
	"path/filepath"
	"testing"
)

type connStr string

func (c connStr) ConnectionString() string {
	return string(c)
}

func openTestDb(t *testing.T, path string) connStr {
	t.Helper()
	cfg := connStr(path)
	conn, err := Open(cfg)
	if err != nil {
		t.Fatalf("error opening db: %v", err)
	}
	t.Cleanup(func() {
		Close(cfg)
	})
	if err := Migrate("up", conn.DB); err != nil {
		t.Fatalf("error migrating: %v", err)
	}
	return cfg
}

func TestOpenReusesConnection(t *testing.T) {
	t.Parallel()

	cfg := openTestDb(t, filepath.Join(t.TempDir(), "fmh.db"))
	a, _ := Open(cfg)
	b, _ := Open(cfg)
	if a != b {
		t.Errorf("expected one connection per connection string")
	}
	if err := Close(cfg); err != nil {
		t.Fatalf("error closing: %v", err)
	}
	c, _ := Open(cfg)
	if c == a {
		t.Errorf("expected a new connection after Close")
	}
}

func TestMigrateSeedsUsers(t *testing.T) {
	t.Parallel()

	cfg := openTestDb(t, filepath.Join(t.TempDir(), "fmh.db"))
	conn, _ := Open(cfg)
	var count int
	if err := conn.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		t.Fatalf("error counting users: %v", err)
	}
	if count != 3 {
		t.Errorf("got %v users, want 3", count)
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := openTestDb(t, filepath.Join(dir, "fmh.db"))
	conn, _ := Open(cfg)
	snapshotPath := filepath.Join(dir, "snapshot.db")

	for i := 0; i < 2; i++ {
		if err := Snapshot(context.Background(), conn, snapshotPath); err != nil {
			t.Fatalf("snapshot %v failed: %v", i, err)
		}
	}

	snapshot := connStr(snapshotPath)
	snapshotConn, err := Open(snapshot)
	if err != nil {
		t.Fatalf("error opening snapshot: %v", err)
	}
	defer Close(snapshot)
	var count int
	if err := snapshotConn.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		t.Fatalf("error reading snapshot: %v", err)
	}
	if count != 3 {
		t.Errorf("got %v users in snapshot, want 3", count)
	}
}
